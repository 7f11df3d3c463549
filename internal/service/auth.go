// Package service holds the business rules of the tracker.
//
// The layers are wired once in server.New:
//
//	Handler (HTTP) → Service (rules) → Repository (storage)
//	                           ↘ auth.TokenService / auth.PasswordService
//
// Services take and return domain types and apperror values. They know
// nothing about HTTP, and nothing about SQL beyond the storage-neutral
// repository.ConstraintViolation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

// AuthService owns accounts and sessions. Sessions are stateless bearer
// tokens; logging out is the client discarding its token.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       now,
	}
}

// Register creates an account. The email is stored case-folded so that
// later logins match regardless of case.
//
// Uniqueness is enforced by the store in the same write as the insert, so
// two concurrent registrations for one email cannot both succeed.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = model.NormalizeEmail(email)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}

	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case repository.IsUnique(err, "users", "email"):
			return nil, apperror.Conflict("Email already registered")
		case repository.IsUnique(err, "users", "username"):
			return nil, apperror.Conflict("Username already taken")
		}
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate checks an email and password. Both an unknown email and a
// wrong password yield the same InvalidCredentials error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed", slog.String("reason", "unknown email"))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unusable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.Info("login failed",
				slog.Int64("userID", user.ID),
				slog.String("reason", "wrong password"),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	return user, nil
}

// IssueToken signs a bearer token for userID.
func (s *AuthService) IssueToken(userID int64) (string, error) {
	token, err := s.tokens.Generate(userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing token for user %d: %w", userID, err)
	}
	return token, nil
}

// ResolveToken validates token and loads its user. It returns ExpiredToken,
// InvalidToken or UnknownSubject (a validly signed token whose user has since
// been deleted), all of which surface as 401.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperror.ExpiredToken()
		}
		return nil, apperror.InvalidToken(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UnknownSubject()
		}
		return nil, fmt.Errorf("service/auth: loading user %d: %w", userID, err)
	}
	return user, nil
}

// now is the service clock: UTC with microsecond precision, which is what
// survives a round trip through storage and JSON unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
