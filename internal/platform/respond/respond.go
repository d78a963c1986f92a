// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// It ensures that every response (Success or Error) across the entire application
// follows a strict, predictable JSON envelope structure:
//
//	{success: bool, data?: any, error?: {code, message, details?},
//	 pagination?: {...}, timestamp: RFC3339}
//
// This consistency is crucial for mobile apps and frontend SPAs to parse
// data robustly.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/ctxutil"
	"github.com/pulsechat/pulse/pkg/pagination"
)

// Envelope is the JSON envelope wrapping every REST response.
type Envelope struct {
	Success    bool             `json:"success"`
	Data       interface{}      `json:"data,omitempty"`
	Error      *ErrorBody       `json:"error,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
	Timestamp  string           `json:"timestamp"`
}

// ErrorBody is the error block of a failed response envelope.
type ErrorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard envelope.
func OK(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

// Created writes a 201 Created response with data wrapped in the standard envelope.
func Created(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusCreated, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

// Paginated writes a 200 OK response with paginated data and a metadata block.
func Paginated(writer http.ResponseWriter, data interface{}, metadata pagination.Meta) {
	JSON(writer, http.StatusOK, Envelope{
		Success:    true,
		Data:       data,
		Pagination: &metadata,
		Timestamp:  now(),
	})
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// Error converts any Go error into a standardized JSON API error response.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		// Unexpected internal error: log full details but hide them from the client for security.
		logger := ctxutil.GetLogger(request.Context())
		logger.ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger := ctxutil.GetLogger(request.Context())
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(writer, appError.HTTPStatus, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    appError.Code,
			Message: appError.Message,
			Details: appError.Details,
		},
		Timestamp: now(),
	})
}

// now returns the envelope timestamp in RFC3339 UTC.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
