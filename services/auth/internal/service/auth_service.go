package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"

	"github.com/diagnosis/venue-bookings/pkg/auth"
	"github.com/diagnosis/venue-bookings/pkg/config"
	"github.com/diagnosis/venue-bookings/pkg/logger"
	"github.com/diagnosis/venue-bookings/services/auth/internal/domain"
	"github.com/diagnosis/venue-bookings/services/auth/internal/repository"
)

// ValidationError marks a malformed request.
type ValidationError struct{ Err error }

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenResponse, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

type authService struct {
	users  repository.UserRepository
	config config.AuthConfig
	params *argon2id.Params
}

func NewAuthService(users repository.UserRepository, cfg config.AuthConfig) AuthService {
	return &authService{users: users, config: cfg, params: argon2id.DefaultParams}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	hash, err := argon2id.CreateHash(req.Password, s.params)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Email, req.Name, hash, auth.RoleUser)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenResponse, error) {
	claims, err := auth.Parse(refreshToken, s.config.JWTSecret)
	if err != nil || claims.Type != auth.TokenRefresh {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.users.FindByID(ctx, claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) issue(user *domain.User) (*domain.TokenResponse, error) {
	access, err := auth.NewAccessToken(user.ID, user.Email, user.Role, s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	refresh, err := auth.NewToken(user.ID, user.Email, user.Role, auth.TokenRefresh, s.config.JWTSecret, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	return &domain.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.config.AccessTokenTTL.Seconds()),
		User:         user,
	}, nil
}

func (s *authService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
