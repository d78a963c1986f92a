// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/internal/chat/group"
	"github.com/pulsechat/pulse/internal/chat/message"
	"github.com/pulsechat/pulse/internal/chat/presence"
	"github.com/pulsechat/pulse/internal/chat/realtime"
	"github.com/pulsechat/pulse/pkg/uuid"
)

// # Direct Messages

/*
TestRouter_DirectOnline verifies the fan-out-first path: the recipient gets
message.new, the sender gets an immediate "delivered" ack, and the log catches
up asynchronously.
*/
func TestRouter_DirectOnline(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)
	recipient := e.connect(t, bob)

	e.send(t, sender, map[string]any{"type": "message.send", "recipient_id": bob, "content": "hello bob"})

	// 1. Recipient sees the message as a flat frame.
	delivered := frame(t, recipient)
	assert.Equal(t, "message.new", delivered["type"])
	assert.Equal(t, "hello bob", delivered["content"])
	assert.Equal(t, alice, delivered["sender_id"])
	assert.Equal(t, "user", delivered["sender_username"])
	assert.Equal(t, bob, delivered["recipient_id"])
	assert.Equal(t, "text", delivered["message_type"])
	assert.NotEmpty(t, delivered["created_at"])

	// 2. Sender is acked without waiting for the log.
	ack := frame(t, sender)
	assert.Equal(t, "message.ack", ack["type"])
	assert.Equal(t, "delivered", ack["status"])
	assert.NotEmpty(t, ack["timestamp"])

	// 3. The durable log catches up in the background, stamped delivered.
	messageID := delivered["message_id"].(string)
	require.Eventually(t, func() bool {
		return e.msgRepo.stored(messageID) != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotNil(t, e.msgRepo.stored(messageID).DeliveredAt)

	// 4. Nothing was queued for an online recipient.
	assert.Empty(t, e.presence.queued(bob))
}

/*
TestRouter_DirectOffline verifies the durability-first path: persist, queue a
replay reference, ack "queued".
*/
func TestRouter_DirectOffline(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)
	// bob never connects.

	e.send(t, sender, map[string]any{"type": "message.send", "recipient_id": bob, "content": "see you later"})

	// 1. Ack says queued.
	ack := frame(t, sender)
	assert.Equal(t, "message.ack", ack["type"])
	assert.Equal(t, "queued", ack["status"])

	// 2. The message was persisted synchronously, undelivered.
	messageID := ack["message_id"].(string)
	stored := e.msgRepo.stored(messageID)
	require.NotNil(t, stored)
	assert.Nil(t, stored.DeliveredAt)
	assert.Equal(t, "text", stored.MessageType)

	// 3. A direct-kind reference waits in bob's queue.
	refs := e.presence.queued(bob)
	require.Len(t, refs, 1)
	assert.Equal(t, presence.QueuedRef{MessageID: messageID, Kind: presence.KindDirect}, refs[0])
}

/*
TestRouter_DirectMessageType verifies a non-default message_type survives the
round trip to the recipient frame and the stored row.
*/
func TestRouter_DirectMessageType(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)
	recipient := e.connect(t, bob)

	e.send(t, sender, map[string]any{
		"type": "message.send", "recipient_id": bob,
		"content": "cat.png", "message_type": "image",
	})

	delivered := frame(t, recipient)
	assert.Equal(t, "image", delivered["message_type"])

	messageID := delivered["message_id"].(string)
	require.Eventually(t, func() bool {
		return e.msgRepo.stored(messageID) != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "image", e.msgRepo.stored(messageID).MessageType)
}

/*
TestRouter_DirectAsyncPersistFailure verifies the sender is told when the
background log write fails after fan-out.
*/
func TestRouter_DirectAsyncPersistFailure(t *testing.T) {
	e := newEnv(t)
	e.msgRepo.failCreate = true
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)
	recipient := e.connect(t, bob)

	e.send(t, sender, map[string]any{"type": "message.send", "recipient_id": bob, "content": "doomed"})

	// Recipient still got the message; sender got the ack first, then the
	// persist failure report.
	assert.Equal(t, "message.new", frame(t, recipient)["type"])
	assert.Equal(t, "message.ack", frame(t, sender)["type"])

	failure := frame(t, sender)
	assert.Equal(t, "error", failure["type"])
	assert.Equal(t, "PERSIST_FAILED", failure["code"])
}

// # Protocol Errors

/*
TestRouter_MalformedFrameKeepsConnection verifies one bad frame produces an
error frame without killing the session.
*/
func TestRouter_MalformedFrameKeepsConnection(t *testing.T) {
	e := newEnv(t)
	client := e.connect(t, uuid.New())

	e.router.HandleFrame(context.Background(), client, []byte("{not json"))

	failure := frame(t, client)
	assert.Equal(t, "error", failure["type"])
	assert.Equal(t, "PARSE_ERROR", failure["code"])

	select {
	case <-client.Done():
		t.Fatal("a malformed frame must not close the connection")
	default:
	}
}

/*
TestRouter_UnknownType verifies the INVALID_MESSAGE_TYPE error frame.
*/
func TestRouter_UnknownType(t *testing.T) {
	e := newEnv(t)
	client := e.connect(t, uuid.New())

	e.send(t, client, map[string]any{"type": "message.unsend"})

	failure := frame(t, client)
	assert.Equal(t, "error", failure["type"])
	assert.Equal(t, "INVALID_MESSAGE_TYPE", failure["code"])
}

/*
TestRouter_MissingRecipient verifies message.send without a target.
*/
func TestRouter_MissingRecipient(t *testing.T) {
	e := newEnv(t)
	client := e.connect(t, uuid.New())

	e.send(t, client, map[string]any{"type": "message.send", "content": "to nobody"})

	failure := frame(t, client)
	assert.Equal(t, "MISSING_RECIPIENT", failure["code"])
}

/*
TestRouter_SelfSendRejected verifies validation errors surface as error frames.
*/
func TestRouter_SelfSendRejected(t *testing.T) {
	e := newEnv(t)
	alice := uuid.New()
	client := e.connect(t, alice)

	e.send(t, client, map[string]any{"type": "message.send", "recipient_id": alice, "content": "note to self"})

	failure := frame(t, client)
	assert.Equal(t, "error", failure["type"])
	assert.Equal(t, "VALIDATION_ERROR", failure["code"])
	assert.Zero(t, e.msgRepo.count())
}

/*
TestRouter_HeartbeatOnEveryFrame verifies any inbound traffic refreshes the
presence TTL, even a ping.
*/
func TestRouter_HeartbeatOnEveryFrame(t *testing.T) {
	e := newEnv(t)
	client := e.connect(t, uuid.New())

	e.send(t, client, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", frame(t, client)["type"])

	e.router.HandleFrame(context.Background(), client, []byte("garbage"))
	frame(t, client) // the parse error

	e.presence.mu.Lock()
	defer e.presence.mu.Unlock()
	assert.Equal(t, 2, e.presence.heartbeats)
}

// # Group Messages

func seedGroup(t *testing.T, e *env, creatorID string, memberIDs ...string) *group.Group {
	t.Helper()
	g, err := e.groups.Create(context.Background(), group.CreateInput{Name: "team", CreatorID: creatorID})
	require.NoError(t, err)
	for _, id := range memberIDs {
		require.NoError(t, e.groups.AddMember(context.Background(), g.ID, creatorID, id))
	}
	return g
}

/*
TestRouter_GroupSend verifies fan-out to online members, queueing for offline
members, and sender exclusion.
*/
func TestRouter_GroupSend(t *testing.T) {
	e := newEnv(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	g := seedGroup(t, e, alice, bob, carol)

	sender := e.connect(t, alice)
	online := e.connect(t, bob)
	// carol stays offline.

	e.send(t, sender, map[string]any{"type": "message.group.send", "group_id": g.ID, "content": "standup time"})

	// 1. The online member gets the flat frame.
	delivered := frame(t, online)
	assert.Equal(t, "message.group.new", delivered["type"])
	assert.Equal(t, "standup time", delivered["content"])
	assert.Equal(t, g.ID, delivered["group_id"])
	assert.Equal(t, alice, delivered["sender_id"])
	assert.Equal(t, "text", delivered["message_type"])
	assert.NotEmpty(t, delivered["created_at"])

	// 2. The sender gets an ack, not their own message back.
	ack := frame(t, sender)
	assert.Equal(t, "message.ack", ack["type"])
	assert.Equal(t, "delivered", ack["status"])
	noFrame(t, sender)

	// 3. The offline member has a group-kind reference queued.
	refs := e.presence.queued(carol)
	require.Len(t, refs, 1)
	assert.Equal(t, presence.KindGroup, refs[0].Kind)
	assert.Equal(t, delivered["message_id"].(string), refs[0].MessageID)
}

/*
TestRouter_GroupSend_NonMember verifies outsiders cannot post.
*/
func TestRouter_GroupSend_NonMember(t *testing.T) {
	e := newEnv(t)
	alice, mallory := uuid.New(), uuid.New()
	g := seedGroup(t, e, alice)

	outsider := e.connect(t, mallory)
	e.send(t, outsider, map[string]any{"type": "message.group.send", "group_id": g.ID, "content": "hi"})

	failure := frame(t, outsider)
	assert.Equal(t, "NOT_GROUP_MEMBER", failure["code"])
}

// # Read Receipts

/*
TestRouter_ReadReceipt verifies the sender gets a message.read frame exactly
once.
*/
func TestRouter_ReadReceipt(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)
	reader := e.connect(t, bob)

	msg, err := e.messages.Persist(context.Background(), alice, bob, "read me", "", true)
	require.NoError(t, err)

	// 1. First receipt notifies the sender with reader and timestamp.
	e.send(t, reader, map[string]any{"type": "message.read", "message_id": msg.ID})
	receipt := frame(t, sender)
	assert.Equal(t, "message.read", receipt["type"])
	assert.Equal(t, msg.ID, receipt["message_id"])
	assert.Equal(t, bob, receipt["reader_id"])
	assert.NotEmpty(t, receipt["read_at"])

	// 2. The duplicate is silent for everyone.
	e.send(t, reader, map[string]any{"type": "message.read", "message_id": msg.ID})
	noFrame(t, sender)
	noFrame(t, reader)
}

/*
TestRouter_GroupReadReceipt verifies the original poster is notified on the
first receipt per reader, and duplicates stay silent.
*/
func TestRouter_GroupReadReceipt(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	g := seedGroup(t, e, alice, bob)

	poster := e.connect(t, alice)
	reader := e.connect(t, bob)

	msg, err := e.groups.Persist(context.Background(), g.ID, alice, "minutes", "")
	require.NoError(t, err)

	// 1. First receipt reaches the poster's socket.
	e.send(t, reader, map[string]any{"type": "message.read", "message_id": msg.ID, "group_id": g.ID})
	receipt := frame(t, poster)
	assert.Equal(t, "message.read", receipt["type"])
	assert.Equal(t, msg.ID, receipt["message_id"])
	assert.Equal(t, bob, receipt["reader_id"])
	assert.True(t, e.grpRepo.receipts[msg.ID][bob])

	// 2. The duplicate is silent.
	e.send(t, reader, map[string]any{"type": "message.read", "message_id": msg.ID, "group_id": g.ID})
	noFrame(t, poster)
	noFrame(t, reader)
}

/*
TestRouter_GroupReadReceipt_OwnMessage verifies a poster reading their own
message does not get notified about themselves.
*/
func TestRouter_GroupReadReceipt_OwnMessage(t *testing.T) {
	e := newEnv(t)
	alice := uuid.New()
	g := seedGroup(t, e, alice)
	poster := e.connect(t, alice)

	msg, err := e.groups.Persist(context.Background(), g.ID, alice, "self read", "")
	require.NoError(t, err)

	e.send(t, poster, map[string]any{"type": "message.read", "message_id": msg.ID, "group_id": g.ID})
	noFrame(t, poster)
}

// # Typing Indicators

/*
TestRouter_TypingForwardedAndThrottled verifies the indicator reaches the
peer's sockets and bursts are dropped.
*/
func TestRouter_TypingForwardedAndThrottled(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)
	peer := e.connect(t, bob)

	// 1. First indicator goes through.
	e.send(t, sender, map[string]any{"type": "typing", "recipient_id": bob})
	typing := frame(t, peer)
	assert.Equal(t, "typing", typing["type"])
	assert.Equal(t, alice, typing["user_id"])

	// 2. The immediate burst is dropped silently.
	e.send(t, sender, map[string]any{"type": "typing", "recipient_id": bob})
	e.send(t, sender, map[string]any{"type": "typing", "recipient_id": bob})
	noFrame(t, peer)
	noFrame(t, sender)
}

// # Slow Clients

/*
TestRouter_SlowClientDisconnected verifies a full outbound buffer gets the
socket shut down with 1013 instead of stalling delivery.
*/
func TestRouter_SlowClientDisconnected(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)

	// A one-slot buffer that is already full.
	slow := realtime.NewClient(bob, "bob", 1)
	e.registry.Register(context.Background(), slow)
	require.True(t, slow.Enqueue([]byte(`{"type":"pong"}`)))

	e.send(t, sender, map[string]any{"type": "message.send", "recipient_id": bob, "content": "too fast for you"})

	// 1. The stalled socket was disconnected as a slow client.
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client should be shut down")
	}
	code, reason := slow.CloseStatus()
	assert.Equal(t, 1013, code)
	assert.Equal(t, "outbound buffer full", reason)

	// 2. The sender's ack still arrives.
	ack := frame(t, sender)
	assert.Equal(t, "message.ack", ack["type"])
	assert.Equal(t, "delivered", ack["status"])
}

// # REST Dispatch

/*
TestRouter_SendDirect verifies the REST path returns the delivery status and
routes frames the same way the socket path does.
*/
func TestRouter_SendDirect(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	recipient := e.connect(t, bob)

	// 1. Online recipient: delivered, fanned out, persisted synchronously.
	msg, status, err := e.router.SendDirect(context.Background(), alice, "alice", bob, "from the API", "")
	require.NoError(t, err)
	assert.Equal(t, message.StatusDelivered, status)
	delivered := frame(t, recipient)
	assert.Equal(t, "message.new", delivered["type"])
	assert.Equal(t, "alice", delivered["sender_username"])
	require.NotNil(t, e.msgRepo.stored(msg.ID))

	// 2. Offline recipient: queued.
	carol := uuid.New()
	queuedMsg, status, err := e.router.SendDirect(context.Background(), alice, "alice", carol, "catch up later", "")
	require.NoError(t, err)
	assert.Equal(t, message.StatusQueued, status)
	refs := e.presence.queued(carol)
	require.Len(t, refs, 1)
	assert.Equal(t, queuedMsg.ID, refs[0].MessageID)
}

/*
TestRouter_MarkRead verifies the REST receipt path notifies the sender's live
sockets exactly like a websocket frame does.
*/
func TestRouter_MarkRead(t *testing.T) {
	e := newEnv(t)
	alice, bob := uuid.New(), uuid.New()
	sender := e.connect(t, alice)

	msg, err := e.messages.Persist(context.Background(), alice, bob, "read over REST", "", true)
	require.NoError(t, err)

	// 1. First receipt: updated, sender notified.
	updated, err := e.router.MarkRead(context.Background(), msg.ID, bob)
	require.NoError(t, err)
	assert.True(t, updated)

	receipt := frame(t, sender)
	assert.Equal(t, "message.read", receipt["type"])
	assert.Equal(t, msg.ID, receipt["message_id"])
	assert.Equal(t, bob, receipt["reader_id"])

	// 2. Duplicate: not updated, no frame.
	updated, err = e.router.MarkRead(context.Background(), msg.ID, bob)
	require.NoError(t, err)
	assert.False(t, updated)
	noFrame(t, sender)
}
