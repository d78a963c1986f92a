// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pulsechat/pulse/internal/platform/apperr"
)

// PostgreSQL SQLSTATE classes we care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Mapping
//
//   - pgx.ErrNoRows          → NOT_FOUND for the named resource
//   - SQLSTATE 23505         → CONFLICT (duplicate key)
//   - SQLSTATE 23503         → NOT_FOUND (referenced row is gone)
//   - anything else          → INTERNAL_ERROR with the cause preserved for logs
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Conflict(resource + " already exists")
		case codeForeignKeyViolation:
			return apperr.NotFound(resource)
		}
	}

	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a duplicate-key violation.
// Stores use this to turn racing inserts into client-safe CONFLICT errors.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsNoRows reports whether err is an empty-result error.
// Stores use this where an absent row is a valid outcome rather than a failure.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
