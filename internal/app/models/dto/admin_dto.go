package dto

import "time"

// BackupResponse describes a stored database dump
type BackupResponse struct {
	Name      string    `json:"name" example:"backup-20250101-120000.sql"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}
