package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID            int64      `json:"id" db:"id" example:"1"`
	Email         string     `json:"email" db:"email" example:"juan@school.test"`
	Password      string     `json:"-" db:"password"`
	FirstName     string     `json:"firstName" db:"first_name" example:"Juan"`
	LastName      string     `json:"lastName" db:"last_name" example:"Dela Cruz"`
	RoleType      RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`
	IsActive      bool       `json:"isActive" db:"is_active" example:"true"`
	EmailVerified bool       `json:"emailVerified" db:"email_verified" example:"true"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserFilter narrows user listings
type UserFilter struct {
	RoleType *RoleType
	IsActive *bool
	Search   string
}

// RefreshToken is a stored opaque refresh token
type RefreshToken struct {
	Token      string    `db:"token"`
	UserID     int64     `db:"user_id"`
	ExpiryDate time.Time `db:"expiry_date"`
	IsRevoked  bool      `db:"is_revoked"`
	CreatedAt  time.Time `db:"created_at"`
}
