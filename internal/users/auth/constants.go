// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package auth

// # Authentication Constraints

const (
	// RefreshTokenLength is the byte length of the random secure refresh token.
	RefreshTokenLength = 32

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// UsernameMinLength is the minimum number of characters in a username.
	UsernameMinLength = 3

	// UsernameMaxLength is the maximum number of characters in a username.
	UsernameMaxLength = 50

	// PasswordMinLength is the minimum number of characters in a password.
	PasswordMinLength = 8
)
