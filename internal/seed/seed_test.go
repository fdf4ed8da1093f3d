package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/config"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

type fakeAuth struct {
	calls int
	got   *dto.CreateUserRequest
	err   error
}

func (f *fakeAuth) Login(context.Context, *dto.LoginRequest) (*dto.TokenResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeAuth) CreateInitialAdmin(_ context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	f.calls++
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.UserResponse{ID: 1, Email: req.Email, Role: string(req.Role)}, nil
}

func adminConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BootstrapAdmin.Name = "Root"
	cfg.BootstrapAdmin.Email = "root@example.com"
	cfg.BootstrapAdmin.Password = "supersecret"
	return cfg
}

func TestCreateDefaultData(t *testing.T) {
	fa := &fakeAuth{}
	assert.NoError(t, CreateDefaultData(context.Background(), adminConfig(), fa))
	assert.Equal(t, 1, fa.calls)
	assert.Equal(t, models.RoleAdmin, fa.got.Role)
	assert.Equal(t, "root@example.com", fa.got.Email)
}

func TestCreateDefaultData_NotConfigured(t *testing.T) {
	fa := &fakeAuth{}
	assert.NoError(t, CreateDefaultData(context.Background(), &config.Config{}, fa))
	assert.Zero(t, fa.calls)
}

func TestCreateDefaultData_AdminExists(t *testing.T) {
	fa := &fakeAuth{err: apperrors.ErrAdminAlreadyExists}
	assert.NoError(t, CreateDefaultData(context.Background(), adminConfig(), fa))

	fa = &fakeAuth{err: apperrors.ErrEmailAlreadyExists}
	assert.ErrorIs(t, CreateDefaultData(context.Background(), adminConfig(), fa), apperrors.ErrResourceAlreadyExists)
}
