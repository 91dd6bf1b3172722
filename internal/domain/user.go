package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User validation errors
var (
	ErrEmptyUserID      = fmt.Errorf("%w: user ID cannot be empty", ErrValidation)
	ErrEmptyEmail       = fmt.Errorf("%w: email cannot be empty", ErrValidation)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrInvalidUsername  = fmt.Errorf("%w: username must be 3-40 characters", ErrValidation)
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least 12 characters long", ErrValidation)
	ErrPasswordTooLong  = fmt.Errorf("%w: password must be at most 72 characters long", ErrValidation)
	ErrEmptyPassword    = fmt.Errorf("%w: password cannot be empty", ErrValidation)
)

// User is an account known to the identity provider. Plans and enrollments
// only reference users by ID; the username labels participants.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	Password       string    `json:"-"` // plaintext, only set during registration
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email, username and password.
// The caller is responsible for hashing the password before storing the user.
func NewUser(email, username, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Username:  strings.TrimSpace(username),
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}

	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return ErrInvalidEmail
	}

	if n := len(u.Username); n < 3 || n > 40 {
		return ErrInvalidUsername
	}

	// Stored users carry only the hash.
	if u.Password == "" {
		if u.HashedPassword == "" {
			return ErrEmptyPassword
		}
		return nil
	}

	// 72 bytes is the bcrypt input limit.
	switch {
	case len(u.Password) < 12:
		return ErrPasswordTooShort
	case len(u.Password) > 72:
		return ErrPasswordTooLong
	}

	return nil
}
