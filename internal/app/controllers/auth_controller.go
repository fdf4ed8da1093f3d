package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService services.AuthService
}

// NewAuthController creates a new AuthController
func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Login exchanges credentials for an access token.
// POST /users/login
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(ctx, &req) {
		return
	}

	tokenResponse, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	logger.FromContext(ctx.Request.Context()).Info().Msg("User logged in successfully")
	respondOK(ctx, tokenResponse, "Login successful")
}

// CreateInitialAdmin creates the first admin account. It fails with 409 once
// any admin exists.
// POST /users/initial
func (c *AuthController) CreateInitialAdmin(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(ctx, &req) {
		return
	}

	user, err := c.authService.CreateInitialAdmin(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	logger.FromContext(ctx.Request.Context()).Info().Int64("userID", user.ID).Msg("Initial admin created")
	respondCreated(ctx, user, "Admin created successfully")
}
