package seed

import (
	"context"
	"errors"

	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/config"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// CreateDefaultData creates the configured bootstrap admin. An existing admin
// is not an error, so restarts are safe.
func CreateDefaultData(ctx context.Context, cfg *config.Config, authService services.AuthService) error {
	l := logger.FromContext(ctx)
	if !cfg.HasBootstrapAdmin() {
		l.Debug().Msg("No bootstrap admin configured, skipping seed")
		return nil
	}

	admin, err := authService.CreateInitialAdmin(ctx, &dto.CreateUserRequest{
		Name:     cfg.BootstrapAdmin.Name,
		Email:    cfg.BootstrapAdmin.Email,
		Password: cfg.BootstrapAdmin.Password,
		Role:     models.RoleAdmin,
	})
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		l.Info().Msg("Admin already exists, bootstrap admin not created")
		return nil
	case err != nil:
		return err
	}

	l.Info().Int64("userID", admin.ID).Str("email", admin.Email).Msg("Bootstrap admin created")
	return nil
}
