package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// HandleValidationError converts binding errors into a VAL_001 error detail
func HandleValidationError(err error) *ErrorDetail {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
		detail := NewErrorDetail(ErrorCodeValidationFailed, "Validation failed").WithDetails(fields)
		if len(fields) == 1 {
			detail.WithField(fields[0].Field)
		}
		return detail
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return NewErrorDetail(ErrorCodeValidationFailed, "Invalid request format").
			WithDetails(fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case errors.As(err, &typeErr):
		return NewErrorDetail(ErrorCodeValidationFailed, "Invalid request format").
			WithField(typeErr.Field).
			WithDetails(fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type.String()))
	}

	return NewErrorDetail(ErrorCodeValidationFailed, "Invalid request format").WithDetails(err.Error())
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "gte":
		return e.Field() + " must be greater than or equal to " + e.Param()
	case "lte":
		return e.Field() + " must be less than or equal to " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "len":
		return e.Field() + " must be exactly " + e.Param() + " characters long"
	case "numeric":
		return e.Field() + " must contain digits only"
	case "schoolyear":
		return e.Field() + " must look like 2025-2026"
	case "studentnumber":
		return e.Field() + " must look like 2025-00001"
	case "phone":
		return e.Field() + " must be a valid mobile number"
	case "coursecode":
		return e.Field() + " must be uppercase letters and digits"
	case "hhmm":
		return e.Field() + " must be a time in HH:MM format"
	case "datetime":
		return e.Field() + " must match the format " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
