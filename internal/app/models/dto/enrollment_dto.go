package dto

// CreateEnrollmentRequest asks to enroll the caller into a section
type CreateEnrollmentRequest struct {
	SectionID int64 `json:"sectionId" binding:"required,min=1"`
}

// EnrollmentCascadeResponse summarises rows created on approval
type EnrollmentCascadeResponse struct {
	EnrollmentID              int64  `json:"enrollmentId"`
	Status                    string `json:"status"`
	EnrollmentSubjectsCreated int    `json:"enrollmentSubjectsCreated"`
	GradesCreated             int    `json:"gradesCreated"`
	GradesRemoved             int    `json:"gradesRemoved"`
}
