package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

// errorRule maps a sentinel onto an HTTP response
type errorRule struct {
	err     error
	status  int
	code    dto.ErrorCode
	message string
}

// errorRules is checked in order; the first match wins
var errorRules = []errorRule{
	// Authentication
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid email or password"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrInvalidCSRFToken, http.StatusForbidden, dto.ErrorCodeInvalidCSRFToken, "Invalid or missing CSRF token"},
	{apperrors.ErrEmailNotVerified, http.StatusForbidden, dto.ErrorCodeEmailNotVerified, "Email not verified"},
	{apperrors.ErrInvalidOTP, http.StatusBadRequest, dto.ErrorCodeInvalidOTP, "Invalid or expired code"},
	{apperrors.ErrOTPAttemptsExceeded, http.StatusBadRequest, dto.ErrorCodeInvalidOTP, "Too many incorrect attempts, request a new code"},
	{apperrors.ErrTooManyRequests, http.StatusTooManyRequests, dto.ErrorCodeTooManyRequests, "Too many requests, try again later"},

	// Authorization
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrCannotModifySelf, http.StatusForbidden, dto.ErrorCodeForbidden, "You cannot perform this action on your own account"},

	// Validation
	{apperrors.ErrInvalidEmail, http.StatusBadRequest, dto.ErrorCodeInvalidEmail, "Invalid email"},
	{apperrors.ErrInvalidPassword, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},
	{apperrors.ErrInvalidAddress, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Address codes do not match"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrGradeIncomplete, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "All quarter grades are required"},
	{apperrors.ErrInvalidBackupName, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid backup name"},
	{apperrors.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, dto.ErrorCodeUnsupportedFile, "Only PDF, JPEG and PNG files are accepted"},
	{apperrors.ErrFileTooLarge, http.StatusRequestEntityTooLarge, dto.ErrorCodeFileTooLarge, "File too large"},
	{apperrors.ErrNotATeacher, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "User is not an active teacher"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "Bad request"},

	// Not found
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Student not found"},
	{apperrors.ErrApplicationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Application not found"},
	{apperrors.ErrCourseNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Course not found"},
	{apperrors.ErrSubjectNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Subject not found"},
	{apperrors.ErrSectionNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Section not found"},
	{apperrors.ErrScheduleNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Schedule not found"},
	{apperrors.ErrEnrollmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Enrollment not found"},
	{apperrors.ErrGradeNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Grade not found"},
	{apperrors.ErrDocumentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Document not found"},
	{apperrors.ErrBackupNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Backup not found"},

	// Conflicts
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrStudentNumberExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Student number already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrResourceInUse, http.StatusConflict, dto.ErrorCodeResourceInUse, "Resource is referenced by other records"},
	{apperrors.ErrInvalidGradeTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Grade status does not allow this action"},
	{apperrors.ErrGradeNotEditable, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Grade can no longer be edited"},
	{apperrors.ErrApplicationNotPending, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Application is not pending"},
	{apperrors.ErrEnrollmentNotPending, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Enrollment is not pending"},
	{apperrors.ErrEnrollmentNotApproved, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Enrollment is not approved"},
	{apperrors.ErrDocumentNotPending, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Document has already been reviewed"},
	{apperrors.ErrApplicationPending, http.StatusConflict, dto.ErrorCodeConflict, "A pending application already exists"},
	{apperrors.ErrApplicationAlreadyApproved, http.StatusConflict, dto.ErrorCodeConflict, "Student already has an approved application"},
	{apperrors.ErrEnrollmentExists, http.StatusConflict, dto.ErrorCodeConflict, "Student is already enrolled for this term"},
	{apperrors.ErrSectionFull, http.StatusConflict, dto.ErrorCodeConflict, "Section is full"},
	{apperrors.ErrNotAdmitted, http.StatusConflict, dto.ErrorCodeConflict, "Student has no approved application"},
	{apperrors.ErrEmailAlreadyVerified, http.StatusConflict, dto.ErrorCodeConflict, "Email already verified"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},

	// Server
	{apperrors.ErrBackupFailed, http.StatusInternalServerError, dto.ErrorCodeExternalServiceError, "Backup command failed"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	var custom *apperrors.CustomError
	hasCustom := errors.As(err, &custom)

	for _, rule := range errorRules {
		if !errors.Is(err, rule.err) {
			continue
		}
		message := rule.message
		if hasCustom && custom.Message != "" {
			message = custom.Message
		}
		detail := dto.NewErrorDetail(rule.code, message)
		if hasCustom && len(custom.Details) > 0 {
			detail.WithDetails(custom.Details)
		}
		if rule.status >= http.StatusInternalServerError {
			logError(c, err)
		}
		c.JSON(rule.status, dto.NewErrorResponse(detail))
		return
	}

	logError(c, err)
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
	))
}

func logError(c *gin.Context, err error) {
	logger.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int64("userID", CurrentUserID(c)).
		Msg("Unhandled API error")
}
