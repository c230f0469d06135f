package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/auth"
	"loan-backend/internal/middleware"
	"loan-backend/internal/models"
)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)

type UserService struct {
	Users      UserStore
	JWTManager *auth.JWTManager
	TOTP       *TOTPService
}

func NewUserService(users UserStore, jwtManager *auth.JWTManager, totpService *TOTPService) *UserService {
	return &UserService{
		Users:      users,
		JWTManager: jwtManager,
		TOTP:       totpService,
	}
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.Users.Get(ctx, id)
}

// CreateAdmin creates an ADMIN user with a hashed password (used by the seed script)
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	if name == "" || email == "" || len(password) < 6 {
		return nil, apperrors.Invalid("name, email and a password of at least 6 characters are required")
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: hashed,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the password. Admins with 2FA enabled get a temp token instead of an
// access token and must finish with CompleteLogin.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, *models.LoginStep1Response, error) {
	user, err := s.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, errBadCredentials
		}
		return nil, nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		middleware.LoggerFromContext(ctx).Warn("login failed", slog.Int("user_id", user.ID))
		return nil, nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, nil, apperrors.Forbidden("account is disabled")
	}

	if user.IsAdmin() && user.TOTPEnabled {
		temp, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, nil, err
		}
		return nil, &models.LoginStep1Response{
			Requires2FA: true,
			TempToken:   temp,
			Message:     "enter the code from your authenticator app",
		}, nil
	}

	resp, err := s.issue(user)
	return resp, nil, err
}

// CompleteLogin exchanges a temp token plus a TOTP or backup code for an access token
func (s *UserService) CompleteLogin(ctx context.Context, req *models.TOTPVerifyRequest) (*models.AuthResponse, error) {
	claims, err := s.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired 2FA token", apperrors.ErrUnauthorized)
	}
	if err := s.TOTP.Verify(ctx, claims.UserID, req.Code); err != nil {
		if errors.Is(err, ErrInvalidTOTPCode) {
			return nil, fmt.Errorf("%w: invalid verification code", apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	user, err := s.Users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is disabled")
	}
	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}
