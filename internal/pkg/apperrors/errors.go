package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")
	ErrResourceInUse         = errors.New("resource is referenced by other records")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCSRFToken   = errors.New("invalid or missing CSRF token")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrBadRequest       = errors.New("bad request")

	// Rate limiting
	ErrTooManyRequests = errors.New("too many requests")
)

// User errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrNotATeacher        = errors.New("user is not an active teacher")
	ErrCannotModifySelf   = errors.New("cannot perform this action on your own account")
)

// Email verification / OTP errors
var (
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrInvalidOTP           = errors.New("invalid or expired one-time password")
	ErrOTPAttemptsExceeded  = errors.New("too many incorrect attempts, request a new code")
)

// Student errors
var (
	ErrStudentNotFound            = errors.New("student not found")
	ErrStudentNumberExists        = errors.New("student number already exists")
	ErrApplicationNotFound        = errors.New("application not found")
	ErrApplicationPending         = errors.New("a pending application already exists")
	ErrApplicationAlreadyApproved = errors.New("student already has an approved application")
	ErrApplicationNotPending      = errors.New("application is not pending")
	ErrInvalidAddress             = errors.New("address codes do not match")
)

// Catalog errors
var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrSectionNotFound  = errors.New("section not found")
	ErrScheduleNotFound = errors.New("schedule not found")
)

// Enrollment errors
var (
	ErrEnrollmentNotFound    = errors.New("enrollment not found")
	ErrEnrollmentExists      = errors.New("student is already enrolled for this term")
	ErrEnrollmentNotPending  = errors.New("enrollment is not pending")
	ErrEnrollmentNotApproved = errors.New("enrollment is not approved")
	ErrSectionFull           = errors.New("section has reached its capacity")
	ErrNotAdmitted           = errors.New("student has no approved application")
)

// Grade errors
var (
	ErrGradeNotFound          = errors.New("grade not found")
	ErrInvalidGradeTransition = errors.New("grade status does not allow this action")
	ErrGradeIncomplete        = errors.New("all quarter grades are required before submission")
	ErrGradeNotEditable       = errors.New("grade can no longer be edited")
)

// Document errors
var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentNotPending  = errors.New("document has already been reviewed")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Backup errors
var (
	ErrBackupNotFound    = errors.New("backup not found")
	ErrInvalidBackupName = errors.New("invalid backup name")
	ErrBackupFailed      = errors.New("backup command failed")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with a user-facing message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}
