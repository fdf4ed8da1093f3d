package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

func TestValidateStruct_Valid(t *testing.T) {
	req := dto.CreateUserRequest{Name: "Ada", Email: "ada@example.com", Password: "longenough", Role: "student"}
	assert.NoError(t, ValidateStruct(req))
}

func TestValidateStruct_ReportsJSONFieldName(t *testing.T) {
	tests := []struct {
		name  string
		req   dto.CreateUserRequest
		field string
	}{
		{"missing name", dto.CreateUserRequest{Email: "a@b.io", Password: "longenough", Role: "student"}, "name"},
		{"bad email", dto.CreateUserRequest{Name: "A", Email: "nope", Password: "longenough", Role: "student"}, "email"},
		{"short password", dto.CreateUserRequest{Name: "A", Email: "a@b.io", Password: "short", Role: "student"}, "password"},
		{"unknown role", dto.CreateUserRequest{Name: "A", Email: "a@b.io", Password: "longenough", Role: "root"}, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
			assert.Equal(t, tt.field, apperrors.FieldOf(err))
		})
	}
}

func TestValidateStruct_SliceElements(t *testing.T) {
	err := ValidateStruct(dto.UpdateEnrollmentRequest{Add: []int64{1, 0}})
	require.Error(t, err)
	assert.Equal(t, "add", apperrors.FieldOf(err))

	assert.NoError(t, ValidateStruct(dto.UpdateEnrollmentRequest{}))
}

func TestValidateStruct_PartialUpdate(t *testing.T) {
	empty := ""
	err := ValidateStruct(dto.UpdateCourseRequest{Title: &empty})
	require.Error(t, err)
	assert.Equal(t, "title", apperrors.FieldOf(err))

	assert.NoError(t, ValidateStruct(dto.UpdateCourseRequest{}))
}
