// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package validate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/validate"
)

/*
TestValidator_Passing verifies that a fully valid chain returns nil.
*/
func TestValidator_Passing(t *testing.T) {
	v := &validate.Validator{}
	v.Required("name", "pulse").
		MaxLen("name", "pulse", 10).
		MinLen("name", "pulse", 3).
		Email("email", "dev@pulsechat.app").
		UUID("id", "0190a8b0-1111-7abc-8def-0123456789ab")

	assert.NoError(t, v.Err())
	assert.False(t, v.HasErrors())
}

/*
TestValidator_CollectsAllErrors verifies that every failed rule produces its
own field error instead of short-circuiting at the first failure.
*/
func TestValidator_CollectsAllErrors(t *testing.T) {
	v := &validate.Validator{}
	v.Required("body", "   ").
		UUID("recipient_id", "not-a-uuid").
		Email("email", "nope")

	err := v.Err()
	require.Error(t, err)

	var appError *apperr.AppError
	require.True(t, errors.As(err, &appError))
	assert.Equal(t, apperr.CodeValidation, appError.Code)
	assert.Len(t, appError.Details, 3)
}

/*
TestValidator_MaxLen_CountsRunes verifies Unicode character counting, not bytes.
*/
func TestValidator_MaxLen_CountsRunes(t *testing.T) {
	v := &validate.Validator{}

	// 5 runes, 15 bytes. Must pass a 5-rune limit.
	v.MaxLen("body", "ねこねこね", 5)
	assert.NoError(t, v.Err())

	v2 := &validate.Validator{}
	v2.MaxLen("body", "ねこねこねこ", 5)
	assert.Error(t, v2.Err())
}

/*
TestValidator_UUID_CaseInsensitive verifies uppercase UUIDs are accepted.
*/
func TestValidator_UUID_CaseInsensitive(t *testing.T) {
	v := &validate.Validator{}
	v.UUID("id", "0190A8B0-1111-7ABC-8DEF-0123456789AB")
	assert.NoError(t, v.Err())
}

/*
TestValidator_Custom verifies conditional failures carry the custom message.
*/
func TestValidator_Custom(t *testing.T) {
	sender := "a"
	recipient := "a"

	v := &validate.Validator{}
	v.Custom("recipient_id", sender == recipient, "Cannot message yourself")

	err := v.Err()
	require.Error(t, err)

	var appError *apperr.AppError
	require.True(t, errors.As(err, &appError))
	assert.Equal(t, "Cannot message yourself", appError.Details[0].Message)
}

/*
TestValidator_OneOf verifies set membership checks.
*/
func TestValidator_OneOf(t *testing.T) {
	v := &validate.Validator{}
	v.OneOf("role", "member", "admin", "member")
	assert.NoError(t, v.Err())

	v2 := &validate.Validator{}
	v2.OneOf("role", "owner", "admin", "member")
	assert.Error(t, v2.Err())
}
