package image

import (
	"fmt"
	"strings"

	"vision-relay-go/internal/platform/errors"
)

// ErrorCode classifies a rejected image input.
type ErrorCode string

const (
	CodeEmptyPayload      ErrorCode = "EmptyPayload"
	CodeInvalidEncoding   ErrorCode = "InvalidEncoding"
	CodeOversized         ErrorCode = "Oversized"
	CodeUnsupportedFormat ErrorCode = "UnsupportedFormat"
	CodeInvalidURL        ErrorCode = "InvalidUrl"
	CodeUnsafeURL         ErrorCode = "UnsafeUrl"
)

// ValidationError describes why an image input was rejected.
type ValidationError struct {
	Code     ErrorCode
	Field    string
	Detected string
	Expected string
	Message  string
	Cause    error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %q", e.Field)
		if e.Detected != "" {
			fmt.Fprintf(&b, ", detected %s", e.Detected)
		}
		if e.Expected != "" {
			fmt.Fprintf(&b, ", expected %s", e.Expected)
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// ErrorKind classifies every image validation failure as KindValidation.
func (e *ValidationError) ErrorKind() errors.Kind { return errors.KindValidation }

func supportedList() string {
	return strings.Join(SupportedMIMETypes, ", ")
}

func newValidationError(code ErrorCode, field, detected, expected, message string) *ValidationError {
	return &ValidationError{
		Code:     code,
		Field:    field,
		Detected: detected,
		Expected: expected,
		Message:  message,
	}
}
