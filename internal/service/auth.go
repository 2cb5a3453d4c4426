// Package service contains the business logic layer.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept primitives and return domain errors from the apperror
// package — they know nothing about HTTP. The handlers translate those
// errors into redirects, flashes, and status pages at a single boundary.
// Services take repository interfaces, not concrete types, so tests inject
// in-memory mocks.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// AuthService handles registration and credential checks.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all dependencies injected.
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

// Register creates a new account.
//
// The username is trimmed before validation and storage; the password is
// not — leading/trailing spaces in a password are the user's business.
// A taken username comes back as apperror.ErrConflict, straight from the
// store's UNIQUE constraint, so two racing registrations can't both win.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password is too long")
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Warn("registration rejected, username taken",
				slog.String("username", username),
			)
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Storage(err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login validates a username/password pair and returns the account.
//
// USER ENUMERATION:
// An unknown username and a wrong password produce the IDENTICAL error, so
// the login form never reveals which usernames exist. bcrypt's constant-
// time comparison covers the timing side of the same leak for the password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("login failed, unknown username",
				slog.String("username", username),
			)
			return nil, invalidCredentials()
		}
		s.logger.Error("failed to look up user for login",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Storage(err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("login failed, wrong password",
			slog.String("username", username),
		)
		return nil, invalidCredentials()
	}

	s.logger.Info("user logged in",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// invalidCredentials is the single error both bad-username and bad-password
// paths return.
func invalidCredentials() error {
	return apperror.Unauthenticated("incorrect username or password")
}

// wrapStore passes domain errors through untouched and sanitizes everything
// else into a generic storage error. fmt.Errorf context stays in the chain
// for the logs; the user-facing message never carries it.
func wrapStore(err error, context string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Storage(fmt.Errorf("%s: %w", context, err))
}
