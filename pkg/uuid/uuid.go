// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package uuid provides unique identifiers for the platform.

It wraps the standard UUID library behind two generators: Version 7 for
entity primary keys and Version 4 for message identifiers.

Advantages of Version 7 for primary keys:

  - Sortable: Naturally ordered by creation time (millisecond precision).
  - Friendly: Prevents index fragmentation in PostgreSQL (B-tree optimal).
  - Compact: 128-bit storage, compatible with standard 'uuid' types.

Message identifiers use Version 4 instead: they travel to clients and into
offline queues, and fully random IDs leak no send-time ordering information.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {

	// Create a new version 7 UUID (time-sortable)
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUID: " + err.Error())
	}

	// Convert the UUID to a string
	return id.String()
}

// NewV4 generates a new fully-random UUIDv4 string. Used for message IDs.
func NewV4() string {
	id, err := uuid.NewRandom()
	if err != nil {
		panic("uuid: failed to generate UUID: " + err.Error())
	}
	return id.String()
}

// Must generates a new UUIDv7 or panics.
// Standard Go pattern for initialization where failure is not an option.
func Must() string {
	return New()
}

// IsValid reports whether s parses as any UUID version.
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
