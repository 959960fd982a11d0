package dto

import (
	"time"

	"github.com/yigit/schoolportal/internal/app/models"
)

// UserResponse represents basic user information
type UserResponse struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	RoleType      string     `json:"roleType"`
	IsActive      bool       `json:"isActive"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewUserResponse maps a user model to its public shape
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		RoleType:      string(u.RoleType),
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

// NewUserResponses maps a list of users
func NewUserResponses(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// CreateUserRequest is used by admins to create accounts.
// When Password is empty a temporary one is generated and e-mailed.
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"omitempty,min=8,max=72"`
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	RoleType  string `json:"roleType" binding:"required,oneof=ADMIN TEACHER STUDENT"`
}

// UpdateUserRequest represents profile update data
type UpdateUserRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
}

// SetActiveRequest toggles an account
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}
