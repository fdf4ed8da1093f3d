package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// errorMapping ties an application sentinel to its HTTP status and error code.
type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Order matters: token and credential errors are checked before the broader
// unauthenticated sentinel, and specific conflicts before ErrConflict.
var errorMappings = []errorMapping{
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConcurrentModification, http.StatusConflict, dto.ErrorCodeConcurrentModification, "Concurrent modification, retry the request"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, dto.ErrorCodeStoreUnavailable, "Service temporarily unavailable"},
}

// ErrorStatus returns the HTTP status and error detail for err.
func ErrorStatus(err error) (int, *dto.ErrorDetail) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if msg := apperrors.MessageOf(err); msg != "" && m.status != http.StatusServiceUnavailable {
			message = msg
		}
		detail := dto.NewErrorDetail(m.code, message)
		if field := apperrors.FieldOf(err); field != "" {
			detail = detail.WithField(field)
		}
		// 5xx details may carry store internals
		if details := apperrors.DetailsOf(err); details != nil && m.status < http.StatusInternalServerError {
			detail = detail.WithDetails(details)
		}
		return m.status, detail
	}
	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorStatus(err)

	l := logger.FromContext(c.Request.Context())
	switch {
	case status >= http.StatusInternalServerError:
		l.Error().Err(err).Int("status", status).Msg("Request failed")
	case status == http.StatusConflict:
		l.Info().Err(err).Msg("Request conflicted")
	default:
		l.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	c.AbortWithStatusJSON(status, dto.NewErrorAPIResponse(detail))
}
