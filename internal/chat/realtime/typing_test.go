// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

/*
TestTypingGate_RateLimits verifies that a burst for one (sender, target) pair
passes exactly once per interval while distinct pairs are independent.
*/
func TestTypingGate_RateLimits(t *testing.T) {
	gate := newTypingGate(time.Hour)

	// 1. First event passes, the burst behind it is dropped.
	assert.True(t, gate.Allow("alice", "bob"))
	assert.False(t, gate.Allow("alice", "bob"))
	assert.False(t, gate.Allow("alice", "bob"))

	// 2. Distinct pairs have their own budget.
	assert.True(t, gate.Allow("alice", "carol"))
	assert.True(t, gate.Allow("bob", "alice"))
}

/*
TestTypingGate_RefillsAfterInterval verifies the budget returns once the
interval has elapsed.
*/
func TestTypingGate_RefillsAfterInterval(t *testing.T) {
	gate := newTypingGate(10 * time.Millisecond)

	assert.True(t, gate.Allow("alice", "bob"))
	assert.False(t, gate.Allow("alice", "bob"))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, gate.Allow("alice", "bob"))
}

/*
TestTypingGate_PrunesIdleEntries verifies the limiter map stays bounded.
*/
func TestTypingGate_PrunesIdleEntries(t *testing.T) {
	gate := newTypingGate(time.Nanosecond)

	for i := 0; i < typingGateMaxEntries; i++ {
		gate.Allow("sender", string(rune(i)))
	}

	// Everything above is idle by now (interval is a nanosecond), so the next
	// insert prunes the map instead of growing it past the cap.
	time.Sleep(time.Millisecond)
	gate.Allow("sender", "fresh-target")

	gate.mu.Lock()
	defer gate.mu.Unlock()
	assert.LessOrEqual(t, len(gate.limiters), typingGateMaxEntries)
}
