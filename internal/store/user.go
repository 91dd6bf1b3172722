package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store.
	// It handles domain validation and password hashing internally; on
	// success user.HashedPassword is set and user.Password is cleared.
	// Returns ErrEmailExists or ErrUsernameExists if either is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address, compared
	// case-insensitively. Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
