package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// UserStore implements store.UserStore in memory.
type UserStore struct {
	sess *session
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if user.Password == "" {
		return domain.ErrEmptyPassword
	}

	// hashed outside the lock
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.sess.db.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	st, unlock := s.sess.acquire()
	defer unlock()

	for _, u := range st.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrEmailExists
		}
		if u.Username == user.Username {
			return store.ErrUsernameExists
		}
	}

	user.HashedPassword = string(hash)
	user.Password = ""

	stored := cloneUser(user)
	st.users[user.ID] = stored
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	u, ok := st.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)

	st, unlock := s.sess.acquire()
	defer unlock()

	for _, u := range st.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrUserNotFound
}
