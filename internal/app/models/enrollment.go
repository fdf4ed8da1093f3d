package models

// Enrollment links a student to a course. (CourseID, UserID) is unique.
type Enrollment struct {
	CourseID int64 `db:"course_id"`
	UserID   int64 `db:"user_id"`
}

// RosterEntry is one enrolled student as listed on a course roster.
type RosterEntry struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// EnrollmentDelta reports the rows a reconciliation actually changed.
// Skipped counts requested additions that did not reference a student.
type EnrollmentDelta struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}
