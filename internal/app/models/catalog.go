package models

import "time"

// Course is an academic program, e.g. BSIT
type Course struct {
	ID          int64     `json:"id" db:"id"`
	Code        string    `json:"code" db:"code" example:"BSIT"`
	Name        string    `json:"name" db:"name" example:"Bachelor of Science in Information Technology"`
	Description *string   `json:"description,omitempty" db:"description"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Subject is a unit-bearing class taught within sections
type Subject struct {
	ID          int64     `json:"id" db:"id"`
	Code        string    `json:"code" db:"code" example:"IT101"`
	Name        string    `json:"name" db:"name" example:"Introduction to Computing"`
	Units       int       `json:"units" db:"units" example:"3"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Section is a block of students of one course for a term
type Section struct {
	ID         int64     `json:"id" db:"id"`
	CourseID   int64     `json:"courseId" db:"course_id"`
	Name       string    `json:"name" db:"name" example:"BSIT 1-A"`
	YearLevel  int       `json:"yearLevel" db:"year_level" example:"1"`
	SchoolYear string    `json:"schoolYear" db:"school_year" example:"2025-2026"`
	Semester   Semester  `json:"semester" db:"semester" example:"1"`
	Capacity   int       `json:"capacity" db:"capacity" example:"40"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`

	CourseCode    string `json:"courseCode,omitempty"`
	ApprovedCount int    `json:"approvedCount"`
}

// SectionFilter narrows section listings
type SectionFilter struct {
	CourseID   *int64
	SchoolYear string
	Semester   *Semester
	YearLevel  *int
}

// Schedule is one subject taught to one section at a weekly slot
type Schedule struct {
	ID        int64     `json:"id" db:"id"`
	SectionID int64     `json:"sectionId" db:"section_id"`
	SubjectID int64     `json:"subjectId" db:"subject_id"`
	TeacherID *int64    `json:"teacherId,omitempty" db:"teacher_id"`
	DayOfWeek int       `json:"dayOfWeek" db:"day_of_week" example:"1"`
	StartTime string    `json:"startTime" db:"start_time" example:"08:00"`
	EndTime   string    `json:"endTime" db:"end_time" example:"09:30"`
	Room      *string   `json:"room,omitempty" db:"room"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	SectionName string `json:"sectionName,omitempty"`
	SubjectCode string `json:"subjectCode,omitempty"`
	SubjectName string `json:"subjectName,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`
}

// ScheduleFilter narrows schedule listings
type ScheduleFilter struct {
	SectionID *int64
	TeacherID *int64
	SubjectID *int64
}
