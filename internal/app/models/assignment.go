package models

import "time"

// Assignment belongs to a course; its owner is the course's instructor.
type Assignment struct {
	ID          int64     `json:"id" db:"id"`
	CourseID    int64     `json:"courseId" db:"course_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Points      int       `json:"points" db:"points"`
	Due         time.Time `json:"due" db:"due"`
}
