// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package apperr defines the centralized error handling framework for Pulse.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level transport responses (HTTP status codes and websocket error
frames alike).

Architecture:

  - AppError: A struct containing a machine-readable Code and a user-friendly message.
  - Taxonomy: Every code maps to exactly one HTTP status, so REST handlers and the
    websocket router share a single error vocabulary.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"net/http"
)

// # Error Codes

// Machine-readable error identifiers shared by the REST surface and the
// websocket wire protocol.
const (
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeAuthExpired        = "AUTH_EXPIRED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeForbidden          = "FORBIDDEN"
	CodeNotGroupMember     = "NOT_GROUP_MEMBER"
	CodeMissingRecipient   = "MISSING_RECIPIENT"
	CodeMissingGroup       = "MISSING_GROUP"
	CodeInvalidMessageType = "INVALID_MESSAGE_TYPE"
	CodeParseError         = "PARSE_ERROR"
	CodePersistFailed      = "PERSIST_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodePolicyViolation    = "POLICY_VIOLATION"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is the canonical error type for the Pulse API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "AUTH_INVALID").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Authentication Errors (401)

// AuthInvalid creates a 401 [AppError] with code AUTH_INVALID.
//
// Used for unknown credentials, revoked refresh tokens, and consumed reset
// tokens. The message is deliberately generic to prevent account enumeration.
func AuthInvalid(msg string) *AppError {
	return &AppError{
		Code:       CodeAuthInvalid,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// AuthExpired creates a 401 [AppError] with code AUTH_EXPIRED.
//
// Unlike AUTH_INVALID, clients receiving this code should attempt a token
// refresh rather than a full re-login.
func AuthExpired(msg string) *AppError {
	return &AppError{
		Code:       CodeAuthExpired,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Message") // Returns "Message not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// NotGroupMember creates a 403 [AppError] with code NOT_GROUP_MEMBER.
func NotGroupMember() *AppError {
	return &AppError{
		Code:       CodeNotGroupMember,
		Message:    "You are not a member of this group",
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(msg string) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    msg,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// PersistFailed creates a 500 [AppError] with code PERSIST_FAILED.
//
// Emitted when a durable-log write fails after the business operation was
// otherwise accepted (e.g. a message already fanned out to live sockets).
func PersistFailed(cause error) *AppError {
	return &AppError{
		Code:       CodePersistFailed,
		Message:    "Failed to persist the message",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Code extracts the machine-readable code from err's chain.
// Unclassified errors report INTERNAL_ERROR.
func Code(err error) string {
	if ae := As(err); ae != nil {
		return ae.Code
	}
	return CodeInternal
}
