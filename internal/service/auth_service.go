package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-kb-app/internal/data"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the interface for database operations on users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u *data.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Credentials is a login form submission.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required, validation.Length(1, 80)),
		validation.Field(&c.Password, validation.Required),
	)
}

// AuthService verifies administrator passwords.
type AuthService struct {
	repo  UserRepository
	cost  int
	dummy []byte
	now   func() time.Time
}

// NewAuthService creates a new AuthService using bcrypt's default cost.
func NewAuthService(repo UserRepository) *AuthService {
	return newAuthService(repo, bcrypt.DefaultCost)
}

func newAuthService(repo UserRepository, cost int) *AuthService {
	// Compared against for unknown users so both paths cost a bcrypt round.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("unknown-user"), cost)
	return &AuthService{repo: repo, cost: cost, dummy: dummy, now: time.Now}
}

// HashPassword returns the bcrypt hash of password.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks the credentials and records the login. Unknown users
// and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, c Credentials) (*data.User, error) {
	c.Username = strings.TrimSpace(c.Username)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByUsername(ctx, c.Username)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(c.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return user, nil
}

// EnsureUser creates the account when it does not exist yet. An existing
// account keeps its password. created reports whether a user was added.
func (s *AuthService) EnsureUser(ctx context.Context, username, password string) (created bool, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, errors.New("admin username is empty")
	}
	exists, err := s.repo.Exists(ctx, username)
	if err != nil || exists {
		return false, err
	}
	if password == "" {
		return false, errors.New("admin password is empty")
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := s.repo.Create(ctx, &data.User{Username: username, PasswordHash: hash}); err != nil {
		return false, err
	}
	return true, nil
}

// ChangePassword replaces the password of an existing user.
func (s *AuthService) ChangePassword(ctx context.Context, username, password string) error {
	if password == "" {
		return fieldError("password", "validation_required", "cannot be blank")
	}
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, hash)
}
