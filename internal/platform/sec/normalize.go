// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package sec

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// # Identifier Normalization

// NormalizeUsername lowercases and NFKC-normalizes a username so that
// visually identical Unicode spellings map to one canonical account name.
// Uniqueness checks and lookups must always go through this function.
func NormalizeUsername(username string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(username)))
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
// Only casing and surrounding whitespace are normalized; local-part dots
// and plus-suffixes are preserved as-is.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
