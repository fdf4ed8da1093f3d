package dto

import "github.com/yigit/coursehub/internal/app/models"

// SubmissionListResponse represents a page of submissions
type SubmissionListResponse struct {
	Submissions []models.Submission `json:"submissions"`
	Pagination  PaginationInfo      `json:"pagination"`
}

// UpdateGradeRequest sets the grade of a submission. Other fields are not
// client-writable.
type UpdateGradeRequest struct {
	Grade *float64 `json:"grade" validate:"required,gte=0"`
}
