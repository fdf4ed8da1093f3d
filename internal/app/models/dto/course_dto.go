package dto

import "github.com/yigit/coursehub/internal/app/models"

// CreateCourseRequest represents course creation data
type CreateCourseRequest struct {
	Subject      string `json:"subject" validate:"required,max=32"`
	Number       string `json:"number" validate:"required,max=32"`
	Title        string `json:"title" validate:"required,max=255"`
	Term         string `json:"term" validate:"required,max=32"`
	InstructorID int64  `json:"instructorId" validate:"required,gt=0"`
}

// UpdateCourseRequest is a partial update; nil fields are left unchanged.
type UpdateCourseRequest struct {
	Subject      *string `json:"subject" validate:"omitempty,min=1,max=32"`
	Number       *string `json:"number" validate:"omitempty,min=1,max=32"`
	Title        *string `json:"title" validate:"omitempty,min=1,max=255"`
	Term         *string `json:"term" validate:"omitempty,min=1,max=32"`
	InstructorID *int64  `json:"instructorId" validate:"omitempty,gt=0"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateCourseRequest) IsEmpty() bool {
	return r.Subject == nil && r.Number == nil && r.Title == nil && r.Term == nil && r.InstructorID == nil
}

// CourseListResponse represents a page of courses
type CourseListResponse struct {
	Courses    []models.Course `json:"courses"`
	Pagination PaginationInfo  `json:"pagination"`
}

// UpdateEnrollmentRequest adds and removes students in one atomic step.
// An id present in both lists ends up removed.
type UpdateEnrollmentRequest struct {
	Add    []int64 `json:"add" validate:"omitempty,dive,gt=0"`
	Remove []int64 `json:"remove" validate:"omitempty,dive,gt=0"`
}

// RosterResponse lists the students enrolled in a course.
type RosterResponse struct {
	CourseID int64                `json:"courseId"`
	Students []models.RosterEntry `json:"students"`
}
