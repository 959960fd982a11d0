package models

import "time"

// EnrollmentStatus is the enrollment review state
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "PENDING"
	EnrollmentApproved EnrollmentStatus = "APPROVED"
	EnrollmentRejected EnrollmentStatus = "REJECTED"
	EnrollmentDropped  EnrollmentStatus = "DROPPED"
)

// IsActive reports whether the enrollment still occupies the student's term
func (s EnrollmentStatus) IsActive() bool {
	return s == EnrollmentPending || s == EnrollmentApproved
}

// Enrollment is a student's registration record for a term/section
type Enrollment struct {
	ID         int64            `json:"id" db:"id"`
	StudentID  int64            `json:"studentId" db:"student_id"`
	SectionID  int64            `json:"sectionId" db:"section_id"`
	SchoolYear string           `json:"schoolYear" db:"school_year"`
	Semester   Semester         `json:"semester" db:"semester"`
	Status     EnrollmentStatus `json:"status" db:"status"`
	Remarks    *string          `json:"remarks,omitempty" db:"remarks"`
	ReviewedBy *int64           `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt *time.Time       `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt  time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time        `json:"updatedAt" db:"updated_at"`

	StudentNumber string `json:"studentNumber,omitempty"`
	StudentName   string `json:"studentName,omitempty"`
	SectionName   string `json:"sectionName,omitempty"`
	CourseCode    string `json:"courseCode,omitempty"`
}

// EnrollmentFilter narrows enrollment listings and exports
type EnrollmentFilter struct {
	StudentID  *int64
	SectionID  *int64
	SchoolYear string
	Semester   *Semester
	Status     *EnrollmentStatus
}

// EnrollmentSubject links an enrollment to one schedule of its section
type EnrollmentSubject struct {
	ID           int64     `json:"id" db:"id"`
	EnrollmentID int64     `json:"enrollmentId" db:"enrollment_id"`
	ScheduleID   int64     `json:"scheduleId" db:"schedule_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// RosterEntry is one student in a teacher's class list
type RosterEntry struct {
	EnrollmentID  int64  `json:"enrollmentId"`
	StudentID     int64  `json:"studentId"`
	StudentNumber string `json:"studentNumber"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
}
