package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to callers.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidState     = "INVALID_STATE"
	CodeConflict         = "CONFLICT"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeForbidden        = "FORBIDDEN"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeValidation       = "VALIDATION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Sentinel kinds for errors.Is checks. Any DomainError carrying the same code matches.
var (
	ErrNotFound         = &DomainError{Code: CodeNotFound, Message: "not found", HTTPStatus: http.StatusNotFound}
	ErrInvalidState     = &DomainError{Code: CodeInvalidState, Message: "invalid state", HTTPStatus: http.StatusUnprocessableEntity}
	ErrConflict         = &DomainError{Code: CodeConflict, Message: "conflict", HTTPStatus: http.StatusConflict}
	ErrCapacityExceeded = &DomainError{Code: CodeCapacityExceeded, Message: "capacity exceeded", HTTPStatus: http.StatusTooManyRequests}
	ErrForbidden        = &DomainError{Code: CodeForbidden, Message: "forbidden", HTTPStatus: http.StatusForbidden}
	ErrUnauthorized     = &DomainError{Code: CodeUnauthorized, Message: "unauthorized", HTTPStatus: http.StatusUnauthorized}
	ErrValidation       = &DomainError{Code: CodeValidation, Message: "validation failed", HTTPStatus: http.StatusBadRequest}
	ErrInternal         = &DomainError{Code: CodeInternal, Message: "internal server error", HTTPStatus: http.StatusInternalServerError}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on error code so callers can compare against the sentinel kinds.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInvalidState(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidState, message, http.StatusUnprocessableEntity, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewCapacityExceeded(message string, details map[string]any) error {
	return NewDomainError(CodeCapacityExceeded, message, http.StatusTooManyRequests, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts err to a DomainError, keeping nil as nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
