// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/internal/chat/realtime"
)

/*
TestClient_Enqueue verifies the non-blocking buffer contract: accepted while
there is room, refused when full, refused after shutdown.
*/
func TestClient_Enqueue(t *testing.T) {
	client := realtime.NewClient("user-1", "alice", 2)

	// 1. Room in the buffer.
	assert.True(t, client.Enqueue([]byte("one")))
	assert.True(t, client.Enqueue([]byte("two")))

	// 2. Full buffer refuses without blocking.
	assert.False(t, client.Enqueue([]byte("three")))

	// 3. Empty frames are silently accepted (nothing to send).
	assert.True(t, client.Enqueue(nil))

	// 4. After shutdown, nothing is accepted.
	<-client.Send
	client.Shutdown(1000, "bye")
	assert.False(t, client.Enqueue([]byte("four")))
}

/*
TestClient_Shutdown_FirstCallWins verifies idempotent shutdown keeps the
first close code and reason.
*/
func TestClient_Shutdown_FirstCallWins(t *testing.T) {
	client := realtime.NewClient("user-1", "alice", 1)

	client.Shutdown(1013, "outbound buffer full")
	client.Shutdown(1000, "bye")

	select {
	case <-client.Done():
	default:
		t.Fatal("Done channel should be closed after shutdown")
	}

	code, reason := client.CloseStatus()
	assert.Equal(t, 1013, code)
	assert.Equal(t, "outbound buffer full", reason)
}

/*
TestClient_UniqueIDs verifies each socket gets its own identity even for the
same user.
*/
func TestClient_UniqueIDs(t *testing.T) {
	first := realtime.NewClient("user-1", "alice", 1)
	second := realtime.NewClient("user-1", "alice", 1)

	require.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}
