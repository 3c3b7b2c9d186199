package user

import (
	"context"

	domain "user-rest-service/internal/domain/user"
)

// UserUsecase defines the interface for user business logic operations.
type UserUsecase interface {
	ListUsers(ctx context.Context) (*ListUsersResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error)
	CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error)
}

// Store defines the persistence collaborator for users.
// Lookups return (nil, nil) when no user matches. Implementations are
// expected to serialize their own access; the usecase holds no locks.
type Store interface {
	FindAll(ctx context.Context) ([]domain.User, error)                  // All users ordered by id
	FindByID(ctx context.Context, id int64) (*domain.User, error)        // User by id
	FindByName(ctx context.Context, name string) (*domain.User, error)   // User by unique name
	FindByEmail(ctx context.Context, email string) (*domain.User, error) // User by unique email
	ExistsByID(ctx context.Context, id int64) (bool, error)              // Whether id is taken
	Save(ctx context.Context, u *domain.User) (*domain.User, error)      // Insert when ID is zero, replace otherwise
	DeleteByID(ctx context.Context, id int64) error                      // Remove by id
}
