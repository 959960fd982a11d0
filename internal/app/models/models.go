package models

// RoleType defines the user role type
type RoleType string

const (
	RoleAdmin   RoleType = "ADMIN"
	RoleTeacher RoleType = "TEACHER"
	RoleStudent RoleType = "STUDENT"
)

// IsValid reports whether r is a known role
func (r RoleType) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Semester of a school year
type Semester int

const (
	SemesterFirst  Semester = 1
	SemesterSecond Semester = 2
)
