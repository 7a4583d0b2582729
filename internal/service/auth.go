package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// Field limits for registration.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
	MinPasswordLen = 6
	MaxPasswordLen = 100
)

// UserStore is the part of the credential store the auth service needs.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uint64) (utils.AccessToken, error)
}

// AuthService orchestrates registration and login on top of the
// credential store, the password hasher and the token issuer.
type AuthService struct {
	users      UserStore
	tokens     TokenIssuer
	bcryptCost int
	events     Publisher
}

// NewAuthService wires the service.  A nil publisher disables events.
func NewAuthService(users UserStore, tokens TokenIssuer, bcryptCost int, events Publisher) *AuthService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost, events: events}
}

// ValidateRegistration checks the field lengths for a new account.  The
// username is measured after trimming, the password as given.
func ValidateRegistration(username, password string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(username))
	if n < MinUsernameLen {
		return invalid("Username must be at least 3 characters long")
	}
	if n > MaxUsernameLen {
		return invalid("Username must be less than 50 characters")
	}
	p := utf8.RuneCountInString(password)
	if p < MinPasswordLen {
		return invalid("Password must be at least 6 characters long")
	}
	if p > MaxPasswordLen {
		return invalid("Password must be less than 100 characters")
	}
	return nil
}

// Register validates the input, rejects taken usernames, hashes the
// password and stores the user under the trimmed username.  The returned
// user has no password hash.
func (s *AuthService) Register(ctx context.Context, username, password string) (model.User, error) {
	if err := ValidateRegistration(username, password); err != nil {
		return model.User{}, err
	}
	username = strings.TrimSpace(username)

	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return model.User{}, ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.users.Create(ctx, username, hash)
	if err != nil {
		// a concurrent registration won the race between lookup and insert
		if errors.Is(err, repository.ErrUserExists) {
			return model.User{}, ErrUserAlreadyExists
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	_ = s.events.Publish(ctx, UserRegistered(id))
	return model.User{ID: id, Username: username}, nil
}

// Login resolves the trimmed username, verifies the password and issues a
// token.  Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (utils.AccessToken, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return utils.AccessToken{}, ErrInvalidCredentials
		}
		return utils.AccessToken{}, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return utils.AccessToken{}, ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return utils.AccessToken{}, fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}
