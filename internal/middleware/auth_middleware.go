package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	pkgauth "github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

const identityKey = "identity"

// AuthMiddleware authenticates requests and resolves the caller's identity
type AuthMiddleware struct {
	jwtService   *pkgauth.JWTService
	authzService *auth.AuthorizationService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *pkgauth.JWTService, authzService *auth.AuthorizationService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:   jwtService,
		authzService: authzService,
	}
}

// authenticate validates the bearer token and loads the caller's stored
// role. The role claim in the token is never trusted.
func (m *AuthMiddleware) authenticate(c *gin.Context, header string) (auth.Identity, error) {
	token, err := pkgauth.ExtractBearerToken(header)
	if err != nil {
		return auth.Anonymous, err
	}

	claims, err := m.jwtService.ValidateToken(token)
	if err != nil {
		return auth.Anonymous, err
	}

	return m.authzService.ResolveIdentity(c.Request.Context(), claims.UserID)
}

func (m *AuthMiddleware) handle(c *gin.Context, required bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if required {
			HandleAPIError(c, apperrors.NewUnauthenticatedError("authorization header missing"))
			return
		}
		c.Set(identityKey, auth.Anonymous)
		c.Next()
		return
	}

	// a present but unusable token is rejected even on optional routes
	id, err := m.authenticate(c, header)
	if err != nil {
		HandleAPIError(c, err)
		return
	}

	c.Set(identityKey, id)
	ctx := c.Request.Context()
	l := logger.FromContext(ctx).With().Int64("userID", id.UserID).Str("role", string(id.Role)).Logger()
	c.Request = c.Request.WithContext(logger.WithContext(ctx, l))
	c.Next()
}

// JWTAuth rejects requests without a valid token
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) { m.handle(c, true) }
}

// OptionalAuth lets anonymous requests through as auth.Anonymous
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) { m.handle(c, false) }
}

// IdentityFrom returns the identity stored by the auth middleware, or
// auth.Anonymous when none is present.
func IdentityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Anonymous
}

// SetIdentity stores id as the caller of c.
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(identityKey, id)
}
