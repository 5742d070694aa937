package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound            = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists       = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation          = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation    = new(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied    = new(ErrCodePermissionDenied, "permission denied")
	ErrSignatureInvalid    = new(ErrCodeSignatureInvalid, "signature verification failed")
	ErrReplayDetected      = new(ErrCodeReplayDetected, "timestamp outside the allowed window")
	ErrAlreadyRefunded     = new(ErrCodeAlreadyRefunded, "payment already refunded")
	ErrGateway             = new(ErrCodeGateway, "payment gateway error")
	ErrNoGatewayConfigured = new(ErrCodeNoGatewayConfigured, "no payment gateway configured")
	ErrDatabase            = new(ErrCodeDatabase, "database error")
	ErrSystem              = new(ErrCodeSystemError, "system error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:            http.StatusNotFound,
		ErrAlreadyExists:       http.StatusConflict,
		ErrValidation:          http.StatusBadRequest,
		ErrInvalidOperation:    http.StatusBadRequest,
		ErrPermissionDenied:    http.StatusForbidden,
		ErrSignatureInvalid:    http.StatusUnauthorized,
		ErrReplayDetected:      http.StatusUnauthorized,
		ErrAlreadyRefunded:     http.StatusBadRequest,
		ErrGateway:             http.StatusBadGateway,
		ErrNoGatewayConfigured: http.StatusInternalServerError,
		ErrDatabase:            http.StatusInternalServerError,
		ErrSystem:              http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeValidation          = "validation_error"
	ErrCodeInvalidOperation    = "invalid_operation"
	ErrCodePermissionDenied    = "permission_denied"
	ErrCodeSignatureInvalid    = "signature_invalid"
	ErrCodeReplayDetected      = "replay_detected"
	ErrCodeAlreadyRefunded     = "already_refunded"
	ErrCodeGateway             = "gateway_error"
	ErrCodeNoGatewayConfigured = "no_gateway_configured"
	ErrCodeDatabase            = "database_error"
	ErrCodeSystemError         = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsGateway checks if an error is a transient gateway error eligible for retry
func IsGateway(err error) bool {
	return errors.Is(err, ErrGateway)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsSignatureInvalid checks if an error is a signature verification failure
func IsSignatureInvalid(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}

// IsReplayDetected checks if an error is a stale timestamp rejection
func IsReplayDetected(err error) bool {
	return errors.Is(err, ErrReplayDetected)
}

// IsAlreadyRefunded checks if an error is a repeated refund attempt
func IsAlreadyRefunded(err error) bool {
	return errors.Is(err, ErrAlreadyRefunded)
}

// IsNoGatewayConfigured checks if an error is a missing gateway configuration
func IsNoGatewayConfigured(err error) bool {
	return errors.Is(err, ErrNoGatewayConfigured)
}

// HTTPStatusFromErr returns the HTTP status code for a marked error
func HTTPStatusFromErr(err error) int {
	for sentinel, status := range statusCodeMap {
		if errors.Is(err, sentinel) {
			return status
		}
	}
	return http.StatusInternalServerError
}
