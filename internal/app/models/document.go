package models

import "time"

// DocumentType is the kind of requirement a student uploads
type DocumentType string

const (
	DocumentBirthCertificate DocumentType = "BIRTH_CERTIFICATE"
	DocumentReportCard       DocumentType = "REPORT_CARD"
	DocumentGoodMoral        DocumentType = "GOOD_MORAL"
	DocumentIDPhoto          DocumentType = "ID_PHOTO"
	DocumentTranscript       DocumentType = "TRANSCRIPT"
	DocumentOther            DocumentType = "OTHER"
)

// DocumentStatus is the verification state of an upload
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "PENDING"
	DocumentVerified DocumentStatus = "VERIFIED"
	DocumentRejected DocumentStatus = "REJECTED"
)

// Document is an uploaded student requirement
type Document struct {
	ID           int64          `json:"id" db:"id"`
	StudentID    int64          `json:"studentId" db:"student_id"`
	DocumentType DocumentType   `json:"documentType" db:"document_type"`
	OriginalName string         `json:"originalName" db:"original_name"`
	StorageKey   string         `json:"-" db:"storage_key"`
	MimeType     string         `json:"mimeType" db:"mime_type"`
	SizeBytes    int64          `json:"sizeBytes" db:"size_bytes"`
	Status       DocumentStatus `json:"status" db:"status"`
	Remarks      *string        `json:"remarks,omitempty" db:"remarks"`
	ReviewedBy   *int64         `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt   *time.Time     `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`

	StudentName string `json:"studentName,omitempty"`
}

// DocumentFilter narrows document listings
type DocumentFilter struct {
	StudentID    *int64
	Status       *DocumentStatus
	DocumentType *DocumentType
}
