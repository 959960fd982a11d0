package dto

// CourseRequest creates or updates a course
type CourseRequest struct {
	Code        string  `json:"code" binding:"required,coursecode"`
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	IsActive    *bool   `json:"isActive"`
}

// SubjectRequest creates or updates a subject
type SubjectRequest struct {
	Code        string  `json:"code" binding:"required,coursecode"`
	Name        string  `json:"name" binding:"required,max=200"`
	Units       int     `json:"units" binding:"required,gt=0,lte=10"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// SectionRequest creates or updates a section
type SectionRequest struct {
	CourseID   int64  `json:"courseId" binding:"required,min=1"`
	Name       string `json:"name" binding:"required,max=100"`
	YearLevel  int    `json:"yearLevel" binding:"required,min=1,max=6"`
	SchoolYear string `json:"schoolYear" binding:"required,schoolyear"`
	Semester   int    `json:"semester" binding:"required,oneof=1 2"`
	Capacity   int    `json:"capacity" binding:"required,gt=0,lte=500"`
}

// ScheduleRequest creates or updates a schedule
type ScheduleRequest struct {
	SectionID int64   `json:"sectionId" binding:"required,min=1"`
	SubjectID int64   `json:"subjectId" binding:"required,min=1"`
	TeacherID *int64  `json:"teacherId" binding:"omitempty,min=1"`
	DayOfWeek int     `json:"dayOfWeek" binding:"required,min=1,max=7"`
	StartTime string  `json:"startTime" binding:"required,hhmm"`
	EndTime   string  `json:"endTime" binding:"required,hhmm"`
	Room      *string `json:"room" binding:"omitempty,max=50"`
}

// AssignTeacherRequest sets or clears the teacher of a schedule
type AssignTeacherRequest struct {
	TeacherID *int64 `json:"teacherId" binding:"omitempty,min=1"`
}

// AssignTeacherResponse summarises the auto-enrollment cascade
type AssignTeacherResponse struct {
	ScheduleID                int64  `json:"scheduleId"`
	TeacherID                 *int64 `json:"teacherId"`
	EnrollmentsProcessed      int    `json:"enrollmentsProcessed"`
	EnrollmentSubjectsCreated int    `json:"enrollmentSubjectsCreated"`
	GradesCreated             int    `json:"gradesCreated"`
	GradesReassigned          int    `json:"gradesReassigned"`
}
