package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	pkgauth "github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/logger"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// ErrInvalidCredentials is returned for an unknown email and a wrong password alike.
var ErrInvalidCredentials = apperrors.NewCustomError(apperrors.ErrInvalidCredentials, "invalid email or password")

// AuthService handles authentication and the initial admin bootstrap
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	CreateInitialAdmin(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
}

type authServiceImpl struct {
	userRepo   repositories.IUserRepository
	jwtService *pkgauth.JWTService
	hashCost   int
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.IUserRepository, jwtService *pkgauth.JWTService) AuthService {
	return &authServiceImpl{
		userRepo:   userRepo,
		jwtService: jwtService,
		hashCost:   pkgauth.BcryptCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates a user
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	if !pkgauth.CheckPassword(user.Password, req.Password) {
		logger.FromContext(ctx).Debug().Int64("userID", user.ID).Msg("Login with wrong password")
		return nil, ErrInvalidCredentials
	}

	token, expiresIn, err := s.jwtService.GenerateAccessToken(user.ID, string(user.RoleType))
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	return &dto.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(expiresIn),
	}, nil
}

// CreateInitialAdmin creates the first admin account. It conflicts as soon as
// any admin exists.
func (s *authServiceImpl) CreateInitialAdmin(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Role != models.RoleAdmin {
		return nil, apperrors.NewValidationError("role", "role must be admin")
	}

	user, err := newUserModel(req, s.hashCost)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.CreateInitialAdmin(ctx, user); err != nil {
		return nil, err
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// newUserModel builds the stored form of req with its password hashed.
func newUserModel(req *dto.CreateUserRequest, cost int) (*models.User, error) {
	hash, err := pkgauth.HashPasswordWithCost(req.Password, cost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	return &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: hash,
		RoleType: req.Role,
	}, nil
}
