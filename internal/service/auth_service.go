package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/featureflags"
	"github.com/aryan0dhankhar/leadintake/internal/observability/metrics"
	"github.com/aryan0dhankhar/leadintake/internal/security/auth"
	"github.com/aryan0dhankhar/leadintake/internal/validation"
)

// AuthConfig tunes token lifetime and hashing cost
type AuthConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	cfg      AuthConfig
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterInput is a sign up request
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	User  domain.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Register creates a new USER account and signs a token for it
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if featureflags.Enabled(featureflags.DisableRegistration) {
		metrics.ObserveAuth("register", metrics.ResultDenied)
		return nil, domain.ErrRegistrationDisabled
	}

	if v := validation.ValidateRegistration(in.Email, in.Password, in.FirstName, in.LastName); len(v) > 0 {
		metrics.ObserveAuth("register", metrics.ResultInvalid)
		return nil, domain.NewValidationError("Invalid form data", v)
	}

	email := strings.TrimSpace(in.Email)

	// Check if user already exists
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		metrics.ObserveAuth("register", metrics.ResultConflict)
		return nil, domain.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		metrics.ObserveAuth("register", metrics.ResultError)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user, err := s.createUser(ctx, email, in.Password, in.FirstName, in.LastName, domain.RoleUser)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.ObserveAuth("register", metrics.ResultConflict)
			return nil, domain.ErrEmailTaken
		}
		metrics.ObserveAuth("register", metrics.ResultError)
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		metrics.ObserveAuth("register", metrics.ResultError)
		return nil, err
	}

	metrics.ObserveAuth("register", metrics.ResultSuccess)
	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return result, nil
}

// Login authenticates a user. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if v := validation.ValidateLogin(email, password); len(v) > 0 {
		metrics.ObserveAuth("login", metrics.ResultInvalid)
		return nil, domain.NewValidationError("Invalid form data", v)
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			metrics.ObserveAuth("login", metrics.ResultError)
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		metrics.ObserveAuth("login", metrics.ResultDenied)
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
		metrics.ObserveAuth("login", metrics.ResultDenied)
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		metrics.ObserveAuth("login", metrics.ResultError)
		return nil, err
	}

	metrics.ObserveAuth("login", metrics.ResultSuccess)
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return result, nil
}

// Me returns the public profile of the token holder
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

// ListUsers returns every operator account without credentials
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]domain.PublicUser, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	return out, nil
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if v := validation.ValidatePassword(newPassword); len(v) > 0 {
		return domain.NewValidationError("Invalid form data", v)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("failed to update user password", slog.String("error", err.Error()))
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}

// EnsureAdmin seeds an ADMIN account when none exists for email
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	if v := validation.ValidateLogin(email, password); len(v) > 0 {
		return domain.NewValidationError("Invalid admin credentials", v)
	}

	user, err := s.createUser(ctx, email, password, "Admin", "User", domain.RoleAdmin)
	if err != nil {
		return err
	}

	s.logger.Info("admin account created", slog.String("user_id", user.ID))
	return nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, firstName, lastName string, role domain.UserRole) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role), s.cfg.TokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}
