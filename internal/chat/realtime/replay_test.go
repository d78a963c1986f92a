// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/internal/chat/presence"
	"github.com/pulsechat/pulse/pkg/uuid"
)

/*
TestReplay_MixedBacklog verifies the whole backlog arrives as one
messages.offline frame, in queue order, and only direct messages get
delivery timestamps.
*/
func TestReplay_MixedBacklog(t *testing.T) {
	e := newEnv(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	// bob is offline while alice direct-messages him and carol posts to a
	// group they share.
	g := seedGroup(t, e, carol, bob)
	direct1, err := e.messages.Persist(context.Background(), alice, bob, "first", "", false)
	require.NoError(t, err)
	grpMsg, err := e.groups.Persist(context.Background(), g.ID, carol, "second", "")
	require.NoError(t, err)
	direct2, err := e.messages.Persist(context.Background(), alice, bob, "third", "", false)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.presence.Enqueue(ctx, bob, presence.QueuedRef{MessageID: direct1.ID, Kind: presence.KindDirect}))
	require.NoError(t, e.presence.Enqueue(ctx, bob, presence.QueuedRef{MessageID: grpMsg.ID, Kind: presence.KindGroup}))
	require.NoError(t, e.presence.Enqueue(ctx, bob, presence.QueuedRef{MessageID: direct2.ID, Kind: presence.KindDirect}))

	client := e.connect(t, bob)
	e.router.ReplayOffline(ctx, client)

	// 1. One frame carrying the whole backlog, original queue order kept.
	replay := frame(t, client)
	assert.Equal(t, "messages.offline", replay["type"])
	assert.Equal(t, float64(3), replay["count"])

	entries := replay["messages"].([]any)
	require.Len(t, entries, 3)
	types := make([]string, 0, 3)
	ids := make([]string, 0, 3)
	for _, raw := range entries {
		entry := raw.(map[string]any)
		types = append(types, entry["type"].(string))
		ids = append(ids, entry["message_id"].(string))
	}
	assert.Equal(t, []string{"message.new", "message.group.new", "message.new"}, types)
	assert.Equal(t, []string{direct1.ID, grpMsg.ID, direct2.ID}, ids)

	// 2. Only the direct messages were marked delivered.
	assert.ElementsMatch(t, []string{direct1.ID, direct2.ID}, e.msgRepo.delivered)

	// 3. The queue was consumed.
	assert.Empty(t, e.presence.queued(bob))
	noFrame(t, client)
}

/*
TestReplay_EmptyQueue verifies a clean connect stays silent.
*/
func TestReplay_EmptyQueue(t *testing.T) {
	e := newEnv(t)
	client := e.connect(t, uuid.New())

	e.router.ReplayOffline(context.Background(), client)

	noFrame(t, client)
}

/*
TestReplay_DrainFailureLeavesQueue verifies a failed claim consumes nothing.
*/
func TestReplay_DrainFailureLeavesQueue(t *testing.T) {
	e := newEnv(t)
	bob := uuid.New()
	require.NoError(t, e.presence.Enqueue(context.Background(), bob, presence.QueuedRef{MessageID: uuid.New(), Kind: presence.KindDirect}))
	e.presence.failDrain = true

	client := e.connect(t, bob)
	e.router.ReplayOffline(context.Background(), client)

	noFrame(t, client)
	assert.Len(t, e.presence.queued(bob), 1)
	assert.Empty(t, e.msgRepo.delivered)
}

/*
TestReplay_VanishedMessageSkipped verifies a reference whose row is gone is
dropped silently instead of aborting the replay.
*/
func TestReplay_VanishedMessageSkipped(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	kept, err := e.messages.Persist(context.Background(), alice, bob, "still here", "", false)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.presence.Enqueue(ctx, bob, presence.QueuedRef{MessageID: uuid.New(), Kind: presence.KindDirect}))
	require.NoError(t, e.presence.Enqueue(ctx, bob, presence.QueuedRef{MessageID: kept.ID, Kind: presence.KindDirect}))

	client := e.connect(t, bob)
	e.router.ReplayOffline(ctx, client)

	replay := frame(t, client)
	assert.Equal(t, float64(1), replay["count"])
	entries := replay["messages"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, kept.ID, entries[0].(map[string]any)["message_id"])

	// Only the surviving message gets a delivery timestamp.
	assert.Equal(t, []string{kept.ID}, e.msgRepo.delivered)
}
