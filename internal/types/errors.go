package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

const (
	// Inbound decoding (500 on the notification endpoint).
	ErrCodeTokenMalformed ErrorCode = "token_malformed"
	ErrCodePayloadInvalid ErrorCode = "payload_invalid"

	// Outbound delivery. Local to one destination pipeline.
	ErrCodeDeliveryFailed      ErrorCode = "delivery_failed"
	ErrCodeDeliveryRateLimited ErrorCode = "delivery_rate_limited"
	ErrCodeDeliveryCircuitOpen ErrorCode = "delivery_circuit_open"
	ErrCodeDeliveryFormat      ErrorCode = "delivery_format_failed"

	// Configuration and internals.
	ErrCodeConfigInvalid      ErrorCode = "config_invalid"
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to the status the inbound endpoint answers with.
// The platform only distinguishes "accepted" from "failed", so every decoding
// and internal failure collapses to 500.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "delivery_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type used throughout the service.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError with the same code. This lets the
// package-level sentinels (ErrMalformedToken etc.) match any error of their kind.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrMalformedToken = &AppError{Code: ErrCodeTokenMalformed, Message: "malformed token"}
	ErrInvalidPayload = &AppError{Code: ErrCodePayloadInvalid, Message: "invalid payload"}
	ErrDelivery       = &AppError{Code: ErrCodeDeliveryFailed, Message: "delivery failed"}
)

// IsDeliveryError reports whether err is any delivery-kind AppError
// (failed, rate limited, circuit open, format).
func IsDeliveryError(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return strings.HasPrefix(string(appErr.Code), "delivery_")
}
