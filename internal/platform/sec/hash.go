// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package sec

import (
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor. Cost 12 keeps a single hash in
// the low hundreds of milliseconds on current hardware.
const PasswordHashCost = 12

// hashSlots bounds concurrent bcrypt work so that a burst of signups or
// logins cannot monopolize every scheduler thread and starve socket I/O.
var hashSlots = make(chan struct{}, runtime.GOMAXPROCS(0))

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// The call blocks while all worker slots are busy; bcrypt is the only
// CPU-bound operation in the request path.
func HashPassword(plainTextPassword string) (string, error) {
	hashSlots <- struct{}{}
	defer func() { <-hashSlots }()

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// bcrypt's comparison is constant-time with respect to the password.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	hashSlots <- struct{}{}
	defer func() { <-hashSlots }()

	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
