package services

import (
	"context"
	"fmt"

	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
	pkgauth "github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// UserService defines the interface for user operations
type UserService interface {
	CreateUser(ctx context.Context, caller auth.Identity, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetUser(ctx context.Context, caller auth.Identity, id int64) (*dto.UserProfileResponse, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo     repositories.IUserRepository
	authzService *auth.AuthorizationService
	hashCost     int
}

// NewUserService creates a new UserService
func NewUserService(userRepo repositories.IUserRepository, authzService *auth.AuthorizationService) UserService {
	return &userServiceImpl{
		userRepo:     userRepo,
		authzService: authzService,
		hashCost:     pkgauth.BcryptCost,
	}
}

// CreateUser registers an account. Anyone may register a student; admin and
// instructor accounts are created by admins.
func (s *userServiceImpl) CreateUser(ctx context.Context, caller auth.Identity, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	if err := s.authzService.Authorize(ctx, caller, auth.ActionCreateUser, auth.NewUserTarget(req.Role)); err != nil {
		return nil, err
	}

	user, err := newUserModel(req, s.hashCost)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// GetUser returns a profile together with the ids of the courses the user
// teaches or is enrolled in.
func (s *userServiceImpl) GetUser(ctx context.Context, caller auth.Identity, id int64) (*dto.UserProfileResponse, error) {
	if err := s.authzService.Authorize(ctx, caller, auth.ActionReadUserProfile, auth.UserTarget(id)); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	courseIDs, err := s.userRepo.ListCourseIDs(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error listing user courses: %w", err)
	}

	return &dto.UserProfileResponse{
		UserResponse: dto.NewUserResponse(user),
		CourseIDs:    courseIDs,
	}, nil
}
