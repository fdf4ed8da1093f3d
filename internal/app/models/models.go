package models

// RoleType defines the user role type
type RoleType string

const (
	RoleAdmin      RoleType = "admin"
	RoleInstructor RoleType = "instructor"
	RoleStudent    RoleType = "student"
)

// Valid reports whether r is one of the known roles.
func (r RoleType) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// CanTeach reports whether a user with role r may be a course's instructor.
func (r RoleType) CanTeach() bool {
	return r == RoleAdmin || r == RoleInstructor
}
