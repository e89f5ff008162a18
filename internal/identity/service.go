package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bark-bank/bark/internal/bankerr"
)

const minPasswordLength = 8

// Service manages identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a regular user and stores a hashed password.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	return s.create(ctx, creds, false)
}

// EnsureAdmin provisions the administrative principal once. An existing user
// with the same name is returned untouched.
func (s *Service) EnsureAdmin(ctx context.Context, creds Credentials) (User, error) {
	if existing, err := s.repo.FindByUsername(ctx, strings.TrimSpace(creds.Username)); err == nil {
		return existing, nil
	} else if !errors.Is(err, bankerr.ErrNotFound) {
		return User{}, err
	}
	return s.create(ctx, creds, true)
}

func (s *Service) create(ctx context.Context, creds Credentials, admin bool) (User, error) {
	const op = "identity.Register"
	username := strings.TrimSpace(creds.Username)
	if username == "" {
		return User{}, bankerr.New(bankerr.KindInvalidRequest, op, "username is required")
	}
	if len(creds.Password) < minPasswordLength {
		return User{}, bankerr.New(bankerr.KindInvalidRequest, op, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      admin,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	const op = "identity.Authenticate"
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, bankerr.ErrNotFound) {
			return User{}, bankerr.New(bankerr.KindUnauthorized, op, "invalid credentials")
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, bankerr.New(bankerr.KindUnauthorized, op, "invalid credentials")
	}

	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
