package dto

import "github.com/yigit/coursehub/internal/app/models"

// CreateUserRequest registers an account. Only admins may create admin and
// instructor accounts.
type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Email    string          `json:"email" validate:"required,email,max=320"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     models.RoleType `json:"role" validate:"required,oneof=admin instructor student"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType" example:"Bearer"`
	ExpiresIn int64  `json:"expiresIn"`
}

// UserResponse represents basic user information
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserProfileResponse is a user together with the courses they teach or attend.
type UserProfileResponse struct {
	UserResponse
	CourseIDs []int64 `json:"courseIds"`
}

// NewUserResponse converts a user model; the password hash never leaves the service.
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.RoleType),
	}
}
