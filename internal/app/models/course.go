package models

// Course is owned by the user referenced by InstructorID.
type Course struct {
	ID           int64  `json:"id" db:"id"`
	Subject      string `json:"subject" db:"subject"`
	Number       string `json:"number" db:"number"`
	Title        string `json:"title" db:"title"`
	Term         string `json:"term" db:"term"`
	InstructorID int64  `json:"instructorId" db:"instructor_id"`
}

// CourseFilter holds the allow-listed course listing filters. Empty fields do not filter.
type CourseFilter struct {
	Subject string
	Number  string
	Term    string
}
