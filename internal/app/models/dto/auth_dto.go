package dto

// RegisterRequest is the public student sign-up form
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
}

// RegisterResponse is returned after a successful sign-up
type RegisterResponse struct {
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  UserResponse  `json:"user"`
}

// RefreshTokenRequest carries a refresh token when the cookie is not used
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest changes the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

// EmailRequest carries a single email address
type EmailRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

// VerifyEmailRequest confirms an address with a one-time code
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,numeric,min=4,max=10"`
}

// ResetPasswordRequest sets a new password with a one-time code
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,numeric,min=4,max=10"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

// CheckEmailResponse reports whether an address can be registered
type CheckEmailResponse struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

// CSRFTokenResponse carries a token for the X-CSRF-Token header
type CSRFTokenResponse struct {
	Token     string `json:"csrfToken"`
	ExpiresIn int64  `json:"expiresIn"`
}
