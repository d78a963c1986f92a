// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/internal/chat/realtime"
	"github.com/pulsechat/pulse/internal/platform/metrics"
)

func newRegistry(maxPerUser int) (*realtime.Registry, *fakePresence) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pres := newFakePresence()
	return realtime.NewRegistry(maxPerUser, pres, nil, logger), pres
}

/*
TestRegistry_RegisterMarksOnline verifies presence flips on for the first
socket and the registry tracks it.
*/
func TestRegistry_RegisterMarksOnline(t *testing.T) {
	registry, pres := newRegistry(2)
	client := realtime.NewClient("user-1", "alice", 4)

	evicted := registry.Register(context.Background(), client)

	assert.Nil(t, evicted)
	assert.Equal(t, 1, registry.CountFor("user-1"))
	assert.Equal(t, 1, registry.UserCount())
	assert.Equal(t, 1, registry.Len())

	online, _ := pres.IsOnline(context.Background(), "user-1")
	assert.True(t, online)
}

/*
TestRegistry_CapEvictsOldest verifies that exceeding the per-user cap evicts
the OLDEST socket with a policy-violation close.
*/
func TestRegistry_CapEvictsOldest(t *testing.T) {
	registry, _ := newRegistry(2)

	first := realtime.NewClient("user-1", "alice", 4)
	second := realtime.NewClient("user-1", "alice", 4)
	third := realtime.NewClient("user-1", "alice", 4)

	require.Nil(t, registry.Register(context.Background(), first))
	require.Nil(t, registry.Register(context.Background(), second))

	// 1. The third connection pushes the user past the cap.
	evicted := registry.Register(context.Background(), third)
	require.NotNil(t, evicted)
	assert.Equal(t, first.ID, evicted.ID)
	assert.Equal(t, 2, registry.CountFor("user-1"))

	// 2. The evicted socket was shut down with 1008.
	select {
	case <-first.Done():
	default:
		t.Fatal("evicted socket should be shut down")
	}
	code, _ := first.CloseStatus()
	assert.Equal(t, 1008, code)
}

/*
TestRegistry_UnregisterLastGoesOffline verifies presence only flips off when
the final socket departs.
*/
func TestRegistry_UnregisterLastGoesOffline(t *testing.T) {
	registry, pres := newRegistry(2)
	first := realtime.NewClient("user-1", "alice", 4)
	second := realtime.NewClient("user-1", "alice", 4)
	registry.Register(context.Background(), first)
	registry.Register(context.Background(), second)

	// 1. One socket remains: still online.
	last := registry.Unregister(context.Background(), first)
	assert.False(t, last)
	online, _ := pres.IsOnline(context.Background(), "user-1")
	assert.True(t, online)

	// 2. Final socket departs: offline.
	last = registry.Unregister(context.Background(), second)
	assert.True(t, last)
	online, _ = pres.IsOnline(context.Background(), "user-1")
	assert.False(t, online)
}

/*
TestRegistry_UnregisterEvictedSocket verifies that an evicted socket's
delayed unregister does not flip the replacement offline.
*/
func TestRegistry_UnregisterEvictedSocket(t *testing.T) {
	registry, pres := newRegistry(1)
	old := realtime.NewClient("user-1", "alice", 4)
	replacement := realtime.NewClient("user-1", "alice", 4)

	registry.Register(context.Background(), old)
	evicted := registry.Register(context.Background(), replacement)
	require.NotNil(t, evicted)

	// The evicted socket's read loop eventually exits and unregisters, but
	// its slot already belongs to the replacement.
	last := registry.Unregister(context.Background(), old)
	assert.False(t, last)

	online, _ := pres.IsOnline(context.Background(), "user-1")
	assert.True(t, online)
	assert.Equal(t, 1, registry.CountFor("user-1"))
}

/*
TestRegistry_LiveGaugeThroughEviction verifies the live-connections gauge does
not drift when a capped user's oldest socket is evicted and its delayed
unregister turns out to be a no-op.
*/
func TestRegistry_LiveGaugeThroughEviction(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collectors := metrics.New()
	registry := realtime.NewRegistry(1, newFakePresence(), collectors, logger)

	old := realtime.NewClient("user-1", "alice", 4)
	replacement := realtime.NewClient("user-1", "alice", 4)

	// 1. One socket, gauge at one.
	registry.Register(context.Background(), old)
	assert.Equal(t, float64(1), testutil.ToFloat64(collectors.ConnectionsLive))

	// 2. Eviction replaces the socket: still exactly one live connection.
	require.NotNil(t, registry.Register(context.Background(), replacement))
	assert.Equal(t, float64(1), testutil.ToFloat64(collectors.ConnectionsLive))

	// 3. The replacement departs.
	registry.Unregister(context.Background(), replacement)
	assert.Equal(t, float64(0), testutil.ToFloat64(collectors.ConnectionsLive))

	// 4. The evicted socket's delayed unregister must not go negative.
	registry.Unregister(context.Background(), old)
	assert.Equal(t, float64(0), testutil.ToFloat64(collectors.ConnectionsLive))
}

/*
TestRegistry_SocketsForSnapshot verifies lookups return an iteration-safe copy.
*/
func TestRegistry_SocketsForSnapshot(t *testing.T) {
	registry, _ := newRegistry(3)
	client := realtime.NewClient("user-1", "alice", 4)
	registry.Register(context.Background(), client)

	snapshot := registry.SocketsFor("user-1")
	require.Len(t, snapshot, 1)

	registry.Unregister(context.Background(), client)
	assert.Len(t, snapshot, 1) // the copy is unaffected
	assert.Empty(t, registry.SocketsFor("user-1"))
	assert.Nil(t, registry.SocketsFor("stranger"))
}
