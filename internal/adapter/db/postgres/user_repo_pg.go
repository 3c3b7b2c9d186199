package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-rest-service/internal/domain/user"
)

// UserRepoPG implements the user Store using GORM. The name reflects the
// production target; any GORM dialector with unique index support works.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`      // Unique identifier with auto-increment
	Name  string `gorm:"size:255;not null;uniqueIndex"` // Unique user name
	Email string `gorm:"size:255;not null;uniqueIndex"` // Unique email address
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{})
}

// FindAll returns every user ordered by ID.
func (r *UserRepoPG) FindAll(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = toDomain(&models[i])
	}
	return users, nil
}

// FindByID retrieves a user by ID. It returns nil when no row matches.
func (r *UserRepoPG) FindByID(ctx context.Context, id int64) (*user.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByName retrieves a user by name. It returns nil when no row matches.
func (r *UserRepoPG) FindByName(ctx context.Context, name string) (*user.User, error) {
	return r.findOne(ctx, "name = ?", name)
}

// FindByEmail retrieves a user by email. It returns nil when no row matches.
func (r *UserRepoPG) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepoPG) findOne(ctx context.Context, cond string, arg any) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("cond", cond), zap.Any("arg", arg))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.String("cond", cond), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := toDomain(&model)
	return &u, nil
}

// ExistsByID reports whether a user with the given ID is stored.
func (r *UserRepoPG) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Count(&count).Error; err != nil {
		r.log.Error("failed to check user existence", zap.Error(err), zap.Int64("id", id))
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

// Save inserts the user when ID is zero and replaces name and email of the
// row with that ID otherwise. A non-zero ID with no row is inserted with
// that ID. It returns the stored user.
func (r *UserRepoPG) Save(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}

	var err error
	if model.ID == 0 {
		err = r.db.WithContext(ctx).Create(&model).Error
	} else {
		err = r.db.WithContext(ctx).Save(&model).Error
	}
	if err != nil {
		r.log.Error("failed to save user in db", zap.Error(err), zap.Int64("id", u.ID), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	r.log.Info("user saved in db", zap.Int64("id", model.ID))
	saved := toDomain(&model)
	return &saved, nil
}

// DeleteByID removes a user from the database by ID.
func (r *UserRepoPG) DeleteByID(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&UserSchema{}, id).Error; err != nil {
		r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return nil
}

func toDomain(m *UserSchema) user.User {
	return user.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
	}
}
