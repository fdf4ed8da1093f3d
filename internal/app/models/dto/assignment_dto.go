package dto

import "time"

// CreateAssignmentRequest represents assignment creation data
type CreateAssignmentRequest struct {
	CourseID    int64     `json:"courseId" validate:"required,gt=0"`
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description" validate:"max=10000"`
	Points      int       `json:"points" validate:"gte=0"`
	Due         time.Time `json:"due" validate:"required"`
}

// UpdateAssignmentRequest is a partial update; nil fields are left unchanged.
type UpdateAssignmentRequest struct {
	CourseID    *int64     `json:"courseId" validate:"omitempty,gt=0"`
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	Points      *int       `json:"points" validate:"omitempty,gte=0"`
	Due         *time.Time `json:"due"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateAssignmentRequest) IsEmpty() bool {
	return r.CourseID == nil && r.Title == nil && r.Description == nil && r.Points == nil && r.Due == nil
}
