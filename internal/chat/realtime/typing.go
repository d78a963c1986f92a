// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsechat/pulse/internal/platform/constants"
)

// typingGateMaxEntries bounds the limiter map before idle entries are pruned.
const typingGateMaxEntries = 4096

// typingGate rate-limits typing indicators per (sender, target) pair.
//
// Excess events are dropped silently — typing is best-effort signal, not
// state, so there is nothing to acknowledge or retry.
type typingGate struct {
	mu       sync.Mutex
	limiters map[string]*typingEntry
	interval time.Duration
}

type typingEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newTypingGate constructs a [typingGate] with the given minimum spacing.
func newTypingGate(interval time.Duration) *typingGate {
	if interval <= 0 {
		interval = constants.TypingInterval
	}
	return &typingGate{
		limiters: make(map[string]*typingEntry),
		interval: interval,
	}
}

// Allow reports whether a typing indicator from sender to target may be
// forwarded right now.
func (gate *typingGate) Allow(senderID, target string) bool {
	key := senderID + "\x00" + target
	now := time.Now()

	gate.mu.Lock()
	defer gate.mu.Unlock()

	entry, ok := gate.limiters[key]
	if !ok {
		if len(gate.limiters) >= typingGateMaxEntries {
			gate.pruneLocked(now)
		}
		entry = &typingEntry{limiter: rate.NewLimiter(rate.Every(gate.interval), 1)}
		gate.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

// pruneLocked drops entries idle for several intervals. Caller holds the lock.
func (gate *typingGate) pruneLocked(now time.Time) {
	cutoff := now.Add(-10 * gate.interval)
	for key, entry := range gate.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(gate.limiters, key)
		}
	}
}
