package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/service/auth"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email
// or a wrong password. The two cases are not distinguished.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

// Notification listing bounds.
const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// UserService provides account and inbox operations.
type UserService interface {
	// Register creates a new account. The password is hashed by the store.
	Register(ctx context.Context, email, username, password string) (*domain.User, error)

	// Authenticate returns the user whose credentials match.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// ListNotifications returns the actor's newest notifications. A limit
	// of zero selects DefaultNotificationLimit.
	ListNotifications(ctx context.Context, actor uuid.UUID, limit int) ([]*domain.Notification, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	tx       store.TxManager
	verifier auth.PasswordVerifier
	logger   *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService
func NewUserService(tx store.TxManager, verifier auth.PasswordVerifier, logger *slog.Logger) (*UserServiceImpl, error) {
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	}
	if verifier == nil {
		verifier = auth.NewBcryptVerifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		tx:       tx,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "user_service")),
	}, nil
}

// Register creates a new user in a single unit of work.
func (s *UserServiceImpl) Register(ctx context.Context, email, username, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, username, password)
	if err != nil {
		log.Debug("rejected registration", slog.String("reason", err.Error()))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		return st.Users.Create(ctx, user)
	})
	if err != nil {
		err = translateStoreError(err)
		if isDomainError(err) {
			log.Debug("attempted to register taken identity",
				slog.String("email", user.Email),
				slog.String("reason", err.Error()))
		} else {
			log.Error("failed to save user",
				slog.String("error", err.Error()),
				slog.String("email", user.Email))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username))
	return user, nil
}

// Authenticate checks the password against the stored hash.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.tx.Stores().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to retrieve user by email", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve user by email: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			log.Debug("login with wrong password", slog.String("user_id", user.ID.String()))
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to verify password",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.tx.Stores().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", translateStoreError(err))
	}
	return user, nil
}

// ListNotifications implements UserService.ListNotifications.
func (s *UserServiceImpl) ListNotifications(
	ctx context.Context,
	actor uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	if actor == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	switch {
	case limit == 0:
		limit = DefaultNotificationLimit
	case limit < 0 || limit > MaxNotificationLimit:
		return nil, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxNotificationLimit), nil)
	}

	list, err := s.tx.Stores().Notifications.ListByRecipient(ctx, actor, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("user_id", actor.String()))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}
