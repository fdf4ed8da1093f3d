package models

import "time"

// Submission is one student's uploaded file for an assignment. Only Grade is
// mutable after creation.
type Submission struct {
	ID           int64     `json:"id" db:"id"`
	AssignmentID int64     `json:"assignmentId" db:"assignment_id"`
	StudentID    int64     `json:"studentId" db:"student_id"`
	Timestamp    time.Time `json:"timestamp" db:"submitted_at"`
	Filename     string    `json:"filename" db:"filename"`
	StoragePath  string    `json:"-" db:"storage_path"`
	ContentType  string    `json:"contentType" db:"content_type"`
	FileSize     int64     `json:"fileSize" db:"file_size"`
	Grade        *float64  `json:"grade,omitempty" db:"grade"`
}

// SubmissionFilter holds the allow-listed submission listing filters.
type SubmissionFilter struct {
	AssignmentID int64
	StudentID    *int64
}
