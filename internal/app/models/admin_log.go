package models

import (
	"encoding/json"
	"time"
)

// Admin log actions
const (
	ActionUserCreate         = "USER_CREATE"
	ActionUserUpdate         = "USER_UPDATE"
	ActionUserActivate       = "USER_ACTIVATE"
	ActionUserDeactivate     = "USER_DEACTIVATE"
	ActionUserResetPassword  = "USER_RESET_PASSWORD"
	ActionApplicationApprove = "APPLICATION_APPROVE"
	ActionApplicationReject  = "APPLICATION_REJECT"
	ActionCourseCreate       = "COURSE_CREATE"
	ActionCourseUpdate       = "COURSE_UPDATE"
	ActionCourseDelete       = "COURSE_DELETE"
	ActionSubjectCreate      = "SUBJECT_CREATE"
	ActionSubjectUpdate      = "SUBJECT_UPDATE"
	ActionSubjectDelete      = "SUBJECT_DELETE"
	ActionSectionCreate      = "SECTION_CREATE"
	ActionSectionUpdate      = "SECTION_UPDATE"
	ActionSectionDelete      = "SECTION_DELETE"
	ActionScheduleCreate     = "SCHEDULE_CREATE"
	ActionScheduleUpdate     = "SCHEDULE_UPDATE"
	ActionScheduleDelete     = "SCHEDULE_DELETE"
	ActionScheduleAssign     = "SCHEDULE_ASSIGN_TEACHER"
	ActionEnrollmentApprove  = "ENROLLMENT_APPROVE"
	ActionEnrollmentReject   = "ENROLLMENT_REJECT"
	ActionEnrollmentDrop     = "ENROLLMENT_DROP"
	ActionGradeApprove       = "GRADE_APPROVE"
	ActionGradeReject        = "GRADE_REJECT"
	ActionGradeLock          = "GRADE_LOCK"
	ActionGradeUnlock        = "GRADE_UNLOCK"
	ActionDocumentVerify     = "DOCUMENT_VERIFY"
	ActionDocumentReject     = "DOCUMENT_REJECT"
	ActionExport             = "EXPORT"
	ActionBackupCreate       = "BACKUP_CREATE"
	ActionBackupRestore      = "BACKUP_RESTORE"
	ActionBackupDelete       = "BACKUP_DELETE"
)

// Entity types referenced by admin logs
const (
	EntityUser        = "user"
	EntityApplication = "application"
	EntityCourse      = "course"
	EntitySubject     = "subject"
	EntitySection     = "section"
	EntitySchedule    = "schedule"
	EntityEnrollment  = "enrollment"
	EntityGrade       = "grade"
	EntityDocument    = "document"
	EntityBackup      = "backup"
	EntityExport      = "export"
)

// AdminLog is an audit entry of an administrative action
type AdminLog struct {
	ID         int64           `json:"id" db:"id"`
	ActorID    *int64          `json:"actorId,omitempty" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entityType" db:"entity_type"`
	EntityID   *int64          `json:"entityId,omitempty" db:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress  *string         `json:"ipAddress,omitempty" db:"ip_address"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`

	ActorEmail string `json:"actorEmail,omitempty"`
}

// AdminLogFilter narrows admin log listings
type AdminLogFilter struct {
	Action     string
	ActorID    *int64
	EntityType string
	From       *time.Time
	To         *time.Time
}

// DashboardStats are the counters shown on the admin dashboard
type DashboardStats struct {
	Students            int64            `json:"students"`
	Teachers            int64            `json:"teachers"`
	PendingApplications int64            `json:"pendingApplications"`
	PendingEnrollments  int64            `json:"pendingEnrollments"`
	PendingDocuments    int64            `json:"pendingDocuments"`
	SubmittedGrades     int64            `json:"submittedGrades"`
	EnrollmentsByYear   map[string]int64 `json:"enrollmentsByYear"`
}
