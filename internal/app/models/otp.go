package models

import "time"

// OTPPurpose identifies what a one-time code unlocks
type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "EMAIL_VERIFICATION"
	OTPPurposePasswordReset     OTPPurpose = "PASSWORD_RESET"
)

// OTPCode is a hashed one-time code from the 'otp_codes' table
type OTPCode struct {
	ID        int64      `db:"id"`
	Email     string     `db:"email"`
	Purpose   OTPPurpose `db:"purpose"`
	CodeHash  string     `db:"code_hash"`
	Attempts  int        `db:"attempts"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}
