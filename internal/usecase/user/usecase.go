package user

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-rest-service/internal/domain/user"
	apperrors "user-rest-service/pkg/errors"
	"user-rest-service/pkg/logger"
	"user-rest-service/pkg/security"
)

const (
	msgInvalidUserData = "invalid user data"
	msgInvalidEmail    = "invalid email format"
	msgInvalidID       = "invalid user id"
)

// Usecase implements the business logic for user management operations.
// It holds no mutable state of its own and is safe for concurrent use.
type Usecase struct {
	store    Store               // Persistence collaborator
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

// New creates a new instance of Usecase with the provided store and logger.
func New(s Store, log *zap.Logger) *Usecase {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so clients can map errors to inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Usecase{store: s, log: log, validate: v}
}

// toFieldErrors converts validator.ValidationErrors into field/message pairs.
func toFieldErrors(err error) []apperrors.FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make([]apperrors.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		var msg string
		switch e.Tag() {
		case "required":
			msg = "is required"
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", e.Param())
		case "min":
			msg = fmt.Sprintf("must be at least %s characters", e.Param())
		default:
			msg = "is invalid"
		}
		fields = append(fields, apperrors.FieldError{Field: e.Field(), Message: msg})
	}
	return fields
}

// checkInput runs the structural checks followed by the email syntax check.
func (uc *Usecase) checkInput(ctx context.Context, in any, email string) error {
	log := logger.WithContext(ctx, uc.log)

	if err := uc.validate.Struct(in); err != nil {
		fields := toFieldErrors(err)
		if fields == nil {
			return apperrors.NewValidationError(msgInvalidUserData)
		}
		log.Warn("validate failed", zap.Error(err))
		return apperrors.NewValidationError(msgInvalidUserData, fields...)
	}

	if !security.IsValidEmail(email) {
		log.Warn("invalid email format", zap.String("email", email))
		return apperrors.NewValidationError(msgInvalidEmail)
	}

	return nil
}

// ListUsers returns every stored user. An empty store yields an empty slice.
func (uc *Usecase) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Debug("listing users")

	domainUsers, err := uc.store.FindAll(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to list users", err)
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = toDTO(&domainUsers[i])
	}

	return &ListUsersResponse{Users: users}, nil
}

// GetUser retrieves a user by ID.
func (uc *Usecase) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if in.ID <= 0 {
		log.Warn("get user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError(msgInvalidID)
	}

	u, err := uc.store.FindByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	if u == nil {
		log.Debug("user not found", zap.Int64("id", in.ID))
		return nil, notFound(in.ID)
	}

	return &GetUserResponse{User: toDTO(u)}, nil
}

// CreateUser validates the request, rejects duplicate names and emails,
// and persists the user. Guards run in order and the first failure wins.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.checkInput(ctx, in, in.Email); err != nil {
		return nil, err
	}

	byName, err := uc.store.FindByName(ctx, in.Name)
	if err != nil {
		log.Error("failed to check existing name", zap.String("name", in.Name), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}
	if byName != nil {
		log.Warn("name already exists", zap.String("name", in.Name), zap.Int64("existing_id", byName.ID))
		return nil, apperrors.NewAlreadyExistsError("user", fmt.Sprintf("a user with name %s already exists", in.Name))
	}

	byEmail, err := uc.store.FindByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}
	if byEmail != nil {
		log.Warn("email already exists", zap.String("email", in.Email), zap.Int64("existing_id", byEmail.ID))
		return nil, apperrors.NewAlreadyExistsError("user", fmt.Sprintf("a user with email %s already exists", in.Email))
	}

	saved, err := uc.store.Save(ctx, &domain.User{
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	log.Info("user created", zap.Int64("id", saved.ID))
	return &CreateUserResponse{User: toDTO(saved)}, nil
}

// UpdateUser replaces name and email of an existing user. The stored ID is
// always the request ID. Name and email uniqueness are not re-checked here;
// the store's unique indexes reject collisions.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("updating user", zap.Int64("id", in.ID), zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.checkInput(ctx, in, in.Email); err != nil {
		return nil, err
	}

	if in.ID <= 0 {
		log.Warn("update user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError(msgInvalidID)
	}

	exists, err := uc.store.ExistsByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to check user existence", zap.Int64("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to update user", err)
	}
	if !exists {
		log.Warn("user not found for update", zap.Int64("id", in.ID))
		return nil, notFound(in.ID)
	}

	saved, err := uc.store.Save(ctx, &domain.User{
		ID:    in.ID,
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to update user", err)
	}

	return &UpdateUserResponse{User: toDTO(saved)}, nil
}

// DeleteUser removes an existing user.
func (uc *Usecase) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.Int64("id", in.ID))

	if in.ID <= 0 {
		log.Warn("delete user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError(msgInvalidID)
	}

	exists, err := uc.store.ExistsByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to check user existence", zap.Int64("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to delete user", err)
	}
	if !exists {
		log.Warn("user not found for delete", zap.Int64("id", in.ID))
		return nil, notFound(in.ID)
	}

	if err := uc.store.DeleteByID(ctx, in.ID); err != nil {
		log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to delete user", err)
	}

	return &DeleteUserResponse{ID: in.ID}, nil
}

func notFound(id int64) error {
	return apperrors.NewNotFoundError("user", fmt.Sprintf("user not found with id: %d", id))
}

func toDTO(u *domain.User) User {
	return User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
