package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/metrics"
	"github.com/picvault/picvault/internal/model"
	"github.com/picvault/picvault/internal/repository"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// TokenIssuer issues and verifies session tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

// AccountService handles registration, login and profile management.
type AccountService struct {
	users   UserStore
	tokens  TokenIssuer
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, tokens TokenIssuer, recorder metrics.Recorder, logger *slog.Logger) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		users:   users,
		tokens:  tokens,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterInput defines input for registration.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// LoginInput defines input for login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the profile fields to change. Nil means unchanged.
type UpdateProfileInput struct {
	Username          *string
	ProfilePictureURL *string
}

// ChangePasswordInput defines input for a password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string
	User  *model.User
}

// Register creates an account and issues a session token for it.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := model.NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)

	if err := validateRegistration(email, username, input.Password); err != nil {
		return nil, err
	}

	// Fast path; the unique indexes decide races.
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           model.NewID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncUserRegistered()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	return &AuthResult{Token: token, User: user}, nil
}

// Login checks credentials and issues a session token.
// Unknown email and wrong password produce the same error.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := model.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrMissingCredentials
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin(metrics.StatusFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := auth.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		ok = false
	}
	if !ok {
		s.metrics.IncLogin(metrics.StatusFailure)
		return nil, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, input.Password)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.StatusSuccess)
	return &AuthResult{Token: token, User: user}, nil
}

// rehash upgrades a legacy or outdated hash. Failures only log.
func (s *AccountService) rehash(ctx context.Context, user *model.User, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.WarnContext(ctx, "password rehash not stored", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

// VerifyToken returns the user id a session token was issued for.
// Errors are auth.ErrTokenExpired or auth.ErrTokenInvalid.
func (s *AccountService) VerifyToken(token string) (string, error) {
	return s.tokens.Verify(token)
}

// GetProfile returns the user with the given id.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the provided profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if err := ValidateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			existing, err := s.users.GetUserByUsername(ctx, username)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, ErrUsernameTaken
			case err != nil && !errors.Is(err, repository.ErrUserNotFound):
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			user.Username = username
		}
	}

	if input.ProfilePictureURL != nil {
		pic := strings.TrimSpace(*input.ProfilePictureURL)
		if err := ValidatePictureURL(pic); err != nil {
			return nil, err
		}
		user.ProfilePictureURL = pic
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	if input.CurrentPassword == "" || input.NewPassword == "" {
		return ErrMissingPassword
	}
	if utf8.RuneCountInString(input.NewPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return nil
}
