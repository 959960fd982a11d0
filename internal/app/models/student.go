package models

import "time"

// Student defines the student profile based on the 'students' table
type Student struct {
	ID            int64      `json:"id" db:"id"`
	UserID        int64      `json:"userId" db:"user_id"`
	StudentNumber *string    `json:"studentNumber,omitempty" db:"student_number" example:"2025-00001"`
	BirthDate     *time.Time `json:"birthDate,omitempty" db:"birth_date"`
	Gender        *string    `json:"gender,omitempty" db:"gender"`
	Phone         *string    `json:"phone,omitempty" db:"phone"`
	GuardianName  *string    `json:"guardianName,omitempty" db:"guardian_name"`
	GuardianPhone *string    `json:"guardianPhone,omitempty" db:"guardian_phone"`
	Address
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	User *User `json:"user,omitempty"`
}

// StudentFilter narrows student listings and exports
type StudentFilter struct {
	Search       string
	HasNumber    *bool
	SchoolYear   string
	CourseID     *int64
	EnrolledOnly bool
}

// ApplicationStatus is the admission review state
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// Application is a student's admission request for a school year
type Application struct {
	ID         int64             `json:"id" db:"id"`
	StudentID  int64             `json:"studentId" db:"student_id"`
	CourseID   int64             `json:"courseId" db:"course_id"`
	SchoolYear string            `json:"schoolYear" db:"school_year" example:"2025-2026"`
	YearLevel  int               `json:"yearLevel" db:"year_level" example:"1"`
	Status     ApplicationStatus `json:"status" db:"status"`
	Remarks    *string           `json:"remarks,omitempty" db:"remarks"`
	ReviewedBy *int64            `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt *time.Time        `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt  time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt" db:"updated_at"`

	StudentName string `json:"studentName,omitempty"`
	CourseCode  string `json:"courseCode,omitempty"`
}

// ApplicationFilter narrows application listings
type ApplicationFilter struct {
	Status     *ApplicationStatus
	SchoolYear string
	StudentID  *int64
}
