package models

import (
	"math"
	"time"
)

// GradeStatus is the approval state of a grade entry
type GradeStatus string

const (
	GradeDraft     GradeStatus = "DRAFT"
	GradeSubmitted GradeStatus = "SUBMITTED"
	GradeApproved  GradeStatus = "APPROVED"
	GradeRejected  GradeStatus = "REJECTED"
	GradeLocked    GradeStatus = "LOCKED"
)

// GradeAction moves a grade between statuses
type GradeAction string

const (
	GradeActionSubmit  GradeAction = "SUBMIT"
	GradeActionApprove GradeAction = "APPROVE"
	GradeActionReject  GradeAction = "REJECT"
	GradeActionLock    GradeAction = "LOCK"
	GradeActionUnlock  GradeAction = "UNLOCK"
)

var gradeTransitions = map[GradeStatus]map[GradeAction]GradeStatus{
	GradeDraft:     {GradeActionSubmit: GradeSubmitted},
	GradeRejected:  {GradeActionSubmit: GradeSubmitted},
	GradeSubmitted: {GradeActionApprove: GradeApproved, GradeActionReject: GradeRejected},
	GradeApproved:  {GradeActionLock: GradeLocked},
	GradeLocked:    {GradeActionUnlock: GradeApproved},
}

// Next returns the status reached by applying action, or false if not allowed
func (s GradeStatus) Next(action GradeAction) (GradeStatus, bool) {
	next, ok := gradeTransitions[s][action]
	return next, ok
}

// IsEditable reports whether a teacher may still change the scores
func (s GradeStatus) IsEditable() bool {
	return s == GradeDraft || s == GradeRejected
}

// IsFinal reports whether the grade is visible to students
func (s GradeStatus) IsFinal() bool {
	return s == GradeApproved || s == GradeLocked
}

// GradeRemarks summarises the final grade
type GradeRemarks string

const (
	RemarksPassed     GradeRemarks = "PASSED"
	RemarksFailed     GradeRemarks = "FAILED"
	RemarksIncomplete GradeRemarks = "INCOMPLETE"
)

// Grade is the score record of one enrollment subject
type Grade struct {
	ID                  int64        `json:"id" db:"id"`
	EnrollmentSubjectID int64        `json:"enrollmentSubjectId" db:"enrollment_subject_id"`
	TeacherID           *int64       `json:"teacherId,omitempty" db:"teacher_id"`
	Q1                  *float64     `json:"q1" db:"q1"`
	Q2                  *float64     `json:"q2" db:"q2"`
	Q3                  *float64     `json:"q3" db:"q3"`
	Q4                  *float64     `json:"q4" db:"q4"`
	FinalGrade          *float64     `json:"finalGrade" db:"final_grade"`
	Remarks             GradeRemarks `json:"remarks" db:"remarks"`
	Status              GradeStatus  `json:"status" db:"status"`
	RejectionReason     *string      `json:"rejectionReason,omitempty" db:"rejection_reason"`
	SubmittedAt         *time.Time   `json:"submittedAt,omitempty" db:"submitted_at"`
	ApprovedBy          *int64       `json:"approvedBy,omitempty" db:"approved_by"`
	ApprovedAt          *time.Time   `json:"approvedAt,omitempty" db:"approved_at"`
	LockedBy            *int64       `json:"lockedBy,omitempty" db:"locked_by"`
	LockedAt            *time.Time   `json:"lockedAt,omitempty" db:"locked_at"`
	CreatedAt           time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time    `json:"updatedAt" db:"updated_at"`

	// Context joined from enrollment, schedule and student
	EnrollmentID  int64    `json:"enrollmentId"`
	ScheduleID    int64    `json:"scheduleId"`
	StudentID     int64    `json:"studentId"`
	StudentNumber string   `json:"studentNumber,omitempty"`
	StudentName   string   `json:"studentName,omitempty"`
	SubjectCode   string   `json:"subjectCode,omitempty"`
	SubjectName   string   `json:"subjectName,omitempty"`
	Units         int      `json:"units,omitempty"`
	SchoolYear    string   `json:"schoolYear,omitempty"`
	Semester      Semester `json:"semester,omitempty"`
}

// HasScores reports whether any quarter has been entered
func (g *Grade) HasScores() bool {
	return g.Q1 != nil || g.Q2 != nil || g.Q3 != nil || g.Q4 != nil
}

// IsComplete reports whether all four quarters are set
func (g *Grade) IsComplete() bool {
	return g.Q1 != nil && g.Q2 != nil && g.Q3 != nil && g.Q4 != nil
}

// Recompute refreshes FinalGrade and Remarks from the quarter scores
func (g *Grade) Recompute(passingGrade float64) {
	g.FinalGrade, g.Remarks = ComputeFinalGrade(g.Q1, g.Q2, g.Q3, g.Q4, passingGrade)
}

// ComputeFinalGrade averages four quarters rounded to two decimals.
// Any missing quarter yields no final grade and INCOMPLETE.
func ComputeFinalGrade(q1, q2, q3, q4 *float64, passingGrade float64) (*float64, GradeRemarks) {
	if q1 == nil || q2 == nil || q3 == nil || q4 == nil {
		return nil, RemarksIncomplete
	}
	final := math.Round((*q1+*q2+*q3+*q4)/4*100) / 100
	if final >= passingGrade {
		return &final, RemarksPassed
	}
	return &final, RemarksFailed
}

// GradeFilter narrows grade listings
type GradeFilter struct {
	ScheduleID   *int64
	TeacherID    *int64
	StudentID    *int64
	EnrollmentID *int64
	Status       *GradeStatus
	SchoolYear   string
	FinalOnly    bool
}
