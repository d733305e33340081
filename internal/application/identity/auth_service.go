// Package identity authenticates API users and issues their access tokens.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/salesapi/backend/internal/domain/identity"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/salesapi/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Authentication errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid credentials")
	ErrAccountInactive    = shared.NewDomainError("ACCOUNT_INACTIVE", "User is not active")
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
		now:        time.Now,
	}
}

// Login authenticates a user by email and password and returns a bearer token.
// Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.logger.Warn("Login attempt for inactive account",
			zap.String("user_id", user.ID.String()),
			zap.String("status", string(user.Status)))
		return nil, ErrAccountInactive
	}

	token, err := s.jwtService.GenerateToken(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, err
	}

	user.RecordLogin(s.now())
	if err := s.userRepo.Update(ctx, user); err != nil {
		// the token is already issued
		s.logger.Error("Failed to record login", zap.Error(err))
	}

	s.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User: UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Role:  string(user.Role),
		},
	}, nil
}

// EnsureBootstrapUser creates an active admin with the given credentials
// unless a user with that email already exists. It reports whether a user
// was created. Empty credentials are a no-op.
func (s *AuthService) EnsureBootstrapUser(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}

	user, err := identity.NewActiveUser(email, password, identity.UserRoleAdmin, s.now())
	if err != nil {
		return false, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return false, err
	}

	s.logger.Info("Bootstrap admin user created", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	return true, nil
}
