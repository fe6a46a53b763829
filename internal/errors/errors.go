package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound      = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation    = new(ErrCodeValidation, "validation error")
	ErrHTTPClient    = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase      = new(ErrCodeDatabase, "database error")
	ErrSystem        = new(ErrCodeSystemError, "system error")

	// authentication
	ErrMissingToken = new(ErrCodeMissingToken, "missing token")
	ErrInvalidToken = new(ErrCodeInvalidToken, "invalid token")

	// inbound webhook signatures
	ErrSignatureMalformed = new(ErrCodeSignatureMalformed, "malformed webhook signature")
	ErrSignatureMismatch  = new(ErrCodeSignatureMismatch, "webhook signature mismatch")

	// reconciliation
	ErrUpstreamUnavailable = new(ErrCodeUpstreamUnavailable, "upstream unavailable")
	ErrStoreUnavailable    = new(ErrCodeStoreUnavailable, "store unavailable")
	ErrDataIncomplete      = new(ErrCodeDataIncomplete, "event data incomplete")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:          http.StatusInternalServerError,
		ErrDatabase:            http.StatusInternalServerError,
		ErrNotFound:            http.StatusNotFound,
		ErrAlreadyExists:       http.StatusConflict,
		ErrValidation:          http.StatusBadRequest,
		ErrSystem:              http.StatusInternalServerError,
		ErrMissingToken:        http.StatusUnauthorized,
		ErrInvalidToken:        http.StatusUnauthorized,
		ErrSignatureMalformed:  http.StatusBadRequest,
		ErrSignatureMismatch:   http.StatusBadRequest,
		ErrUpstreamUnavailable: http.StatusInternalServerError,
		ErrStoreUnavailable:    http.StatusInternalServerError,
	}
)

const (
	ErrCodeHTTPClient          = "http_client_error"
	ErrCodeSystemError         = "system_error"
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeValidation          = "validation_error"
	ErrCodeDatabase            = "database_error"
	ErrCodeMissingToken        = "missing_token"
	ErrCodeInvalidToken        = "invalid_token"
	ErrCodeSignatureMalformed  = "signature_malformed"
	ErrCodeSignatureMismatch   = "signature_mismatch"
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeStoreUnavailable    = "store_unavailable"
	ErrCodeDataIncomplete      = "data_incomplete"
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

// New creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

// As finds the first error in the chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether err matches the target sentinel
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAuth reports whether err is one of the bearer authentication failures
func IsAuth(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken)
}

// IsSignature reports whether err is a webhook signature failure
func IsSignature(err error) bool {
	return errors.Is(err, ErrSignatureMalformed) || errors.Is(err, ErrSignatureMismatch)
}

// IsDataIncomplete checks if an error marks an event that can be acknowledged and dropped
func IsDataIncomplete(err error) bool {
	return errors.Is(err, ErrDataIncomplete)
}

func HTTPStatusFromErr(err error) int {
	// domain markers win over the generic ones they may wrap
	switch {
	case IsAuth(err):
		return http.StatusUnauthorized
	case IsSignature(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrStoreUnavailable):
		return http.StatusInternalServerError
	}

	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
