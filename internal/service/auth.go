// Authentication business logic.
//
// AuthService sits between the HTTP handlers and the credential store:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (hashing)
//
// Issuing the session cookie is NOT done here. The handler records the
// returned user in session.State, which owns the cookie mirror.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/auth"
	"github.com/sakif/resumatch/internal/model"
	"github.com/sakif/resumatch/internal/repository"
)

const MaxEmailLength = 254

// AuthService handles signup and login.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger

	// decoyOnce/decoyHash back the unknown-email path of Login, which still
	// runs one Verify so both failure paths cost the same.
	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Signup creates a new account.
//
// Returns apperror.ErrConflict ("User already exists") if the email is
// already registered; in that case the users table is not modified.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Info("signup rejected: email taken")
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.Int64("userID", user.ID))
	return user, nil
}

// Login checks an email/password pair.
//
// An unknown email and a wrong password both return
// apperror.InvalidCredentials; callers cannot tell them apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.verifyDecoy(password)
			return nil, apperror.InvalidCredentials()
		}
		s.logger.Error("failed to look up user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unreadable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return user, nil
}

// GetUserByID returns the user for the given id.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user ID must be positive")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.passwords.Hash("decoy-password-never-matches")
		if err != nil {
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash != "" {
		_ = s.passwords.Verify(s.decoyHash, password)
	}
}

func validateCredentials(email, password string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	}
	if !strings.Contains(email, "@") {
		return apperror.ValidationFailed("email", "invalid email format")
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	return nil
}
