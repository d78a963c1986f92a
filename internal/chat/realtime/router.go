// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/pulsechat/pulse/internal/chat/group"
	"github.com/pulsechat/pulse/internal/chat/message"
	"github.com/pulsechat/pulse/internal/chat/presence"
	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/constants"
	"github.com/pulsechat/pulse/internal/platform/metrics"
	"github.com/pulsechat/pulse/pkg/slice"
)

// # Contracts

// PresenceStore is the slice of the presence package the router depends on.
type PresenceStore interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	RefreshHeartbeat(ctx context.Context, userID string) error
	PartitionOnline(ctx context.Context, userIDs []string) (online []string, offline []string, err error)
	Enqueue(ctx context.Context, userID string, ref presence.QueuedRef) error
	Drain(ctx context.Context, userID string) ([]presence.QueuedRef, error)
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// MessageLog is the slice of the direct-message service the router depends on.
type MessageLog interface {
	Prepare(ctx context.Context, senderID, recipientID, body, messageType string, delivered bool) (*message.Message, error)
	Store(ctx context.Context, msg *message.Message) error
	Persist(ctx context.Context, senderID, recipientID, body, messageType string, delivered bool) (*message.Message, error)
	MarkRead(ctx context.Context, messageID, readerID string) (senderID string, readAt time.Time, updated bool, err error)
	MarkDelivered(ctx context.Context, ids []string) error
	FindByIDs(ctx context.Context, ids []string) ([]*message.Message, error)
}

// GroupLog is the slice of the group service the router depends on.
type GroupLog interface {
	Persist(ctx context.Context, groupID, senderID, body, messageType string) (*group.Message, error)
	MemberIDs(ctx context.Context, groupID, senderID string) ([]string, error)
	MarkRead(ctx context.Context, messageID, userID string) (senderID string, readAt time.Time, updated bool, err error)
	FindMessagesByIDs(ctx context.Context, ids []string) ([]*group.Message, error)
}

// # Router

// Router dispatches inbound frames to their handlers and routes outbound
// traffic to live sockets or offline queues.
//
// # Delivery Rules
//
//   - Direct, recipient online: fan out FIRST, ack "delivered", persist
//     asynchronously. Latency on the happy path never waits for the log.
//   - Direct, recipient offline: persist synchronously, queue a reference,
//     ack "queued". Durability before acknowledgement when nobody is waiting.
//   - Group: persist synchronously, then fan out to online members and queue
//     references for offline ones. The sender is excluded from fan-out.
type Router struct {
	registry *Registry
	presence PresenceStore
	messages MessageLog
	groups   GroupLog
	typing   *typingGate
	metrics  *metrics.Set
	logger   *slog.Logger
}

// NewRouter constructs the frame [Router].
func NewRouter(
	registry *Registry,
	presenceStore PresenceStore,
	messages MessageLog,
	groups GroupLog,
	collectors *metrics.Set,
	logger *slog.Logger,
) *Router {
	return &Router{
		registry: registry,
		presence: presenceStore,
		messages: messages,
		groups:   groups,
		typing:   newTypingGate(constants.TypingInterval),
		metrics:  collectors,
		logger:   logger,
	}
}

// # Frame Dispatch

/*
HandleFrame decodes and dispatches one inbound frame.

Description: Any inbound frame — including an unparseable one — proves the
socket is alive, so the presence heartbeat is refreshed before dispatch.
Malformed frames produce an error frame on the same socket; the connection
stays open.

Parameters:
  - ctx: context.Context (request-scoped, from the read loop)
  - client: *Client (the originating socket)
  - raw: []byte (the frame as received)
*/
func (router *Router) HandleFrame(ctx context.Context, client *Client, raw []byte) {

	// Traffic of any shape is a heartbeat.
	_ = router.presence.RefreshHeartbeat(ctx, client.UserID)

	var env envelope
	if err := decodeFrame(raw, &env); err != nil || env.Type == "" {
		router.sendError(client, apperr.CodeParseError, "Malformed frame")
		return
	}

	if router.metrics != nil {
		router.metrics.FramesInbound.WithLabelValues(env.Type).Inc()
	}

	switch env.Type {
	case TypeMessageSend:
		router.handleDirectSend(ctx, client, raw)
	case TypeGroupMessageSend:
		router.handleGroupSend(ctx, client, raw)
	case TypeMessageRead:
		router.handleRead(ctx, client, raw)
	case TypeTyping:
		router.handleTyping(ctx, client, raw)
	case TypePing:
		router.deliverToClient(client, newPongFrame())
	default:
		router.sendError(client, apperr.CodeInvalidMessageType, "Unknown frame type: "+env.Type)
	}
}

// handleDirectSend implements the message.send frame.
func (router *Router) handleDirectSend(ctx context.Context, client *Client, raw []byte) {
	var frame sendFrame
	if err := decodeFrame(raw, &frame); err != nil {
		router.sendError(client, apperr.CodeParseError, "Malformed message.send frame")
		return
	}
	if frame.RecipientID == "" {
		router.sendError(client, apperr.CodeMissingRecipient, "message.send requires a 'recipient_id' field")
		return
	}

	online, err := router.presence.IsOnline(ctx, frame.RecipientID)
	if err != nil {
		// A cache failure degrades to the offline path: the message is still
		// persisted and replayable, just not fanned out immediately.
		router.logger.Warn("presence_check_failed", slog.String("user_id", frame.RecipientID), slog.Any("error", err))
		online = false
	}

	if online {
		router.sendDirectOnline(ctx, client, frame)
		return
	}
	router.sendDirectOffline(ctx, client, frame)
}

// sendDirectOnline fans out first and persists in the background.
func (router *Router) sendDirectOnline(ctx context.Context, client *Client, frame sendFrame) {
	msg, err := router.messages.Prepare(ctx, client.UserID, frame.RecipientID, frame.Content, frame.MessageType, true)
	if err != nil {
		router.sendAppError(client, err)
		return
	}
	msg.SenderUsername = client.Username

	router.deliverToUser(frame.RecipientID, newMessageFrame(msg))
	router.deliverToClient(client, newAckFrame(msg.ID, AckDelivered))
	if router.metrics != nil {
		router.metrics.MessagesDelivered.Inc()
	}

	// Persist off the hot path. The recipient already has the message; a log
	// failure is reported back to the sender as a PERSIST_FAILED error frame.
	go func() {
		persistCtx, cancel := context.WithTimeout(context.Background(), constants.LogQueryTimeout)
		defer cancel()

		if err := router.messages.Store(persistCtx, msg); err != nil {
			router.logger.Error("async_persist_failed",
				slog.String("message_id", msg.ID),
				slog.String("sender_id", msg.SenderID),
				slog.Any("error", err),
			)
			router.sendError(client, apperr.CodePersistFailed, "Message delivered but not persisted: "+msg.ID)
		}
	}()
}

// sendDirectOffline persists synchronously, then queues a replay reference.
func (router *Router) sendDirectOffline(ctx context.Context, client *Client, frame sendFrame) {
	msg, err := router.messages.Persist(ctx, client.UserID, frame.RecipientID, frame.Content, frame.MessageType, false)
	if err != nil {
		router.sendAppError(client, err)
		return
	}

	if err := router.presence.Enqueue(ctx, frame.RecipientID, presence.QueuedRef{MessageID: msg.ID, Kind: presence.KindDirect}); err != nil {
		// The message survives in the durable log and stays reachable via
		// the unread endpoint even when the queue write fails.
		router.logger.Warn("offline_enqueue_failed",
			slog.String("message_id", msg.ID),
			slog.String("recipient_id", frame.RecipientID),
			slog.Any("error", err),
		)
	}

	router.deliverToClient(client, newAckFrame(msg.ID, AckQueued))
	if router.metrics != nil {
		router.metrics.MessagesQueued.Inc()
	}
}

// handleGroupSend implements the message.group.send frame.
func (router *Router) handleGroupSend(ctx context.Context, client *Client, raw []byte) {
	var frame groupSendFrame
	if err := decodeFrame(raw, &frame); err != nil {
		router.sendError(client, apperr.CodeParseError, "Malformed message.group.send frame")
		return
	}
	if frame.GroupID == "" {
		router.sendError(client, apperr.CodeMissingGroup, "message.group.send requires a 'group_id' field")
		return
	}

	// Group messages are persisted before fan-out: with N recipients there is
	// no single "waiting" peer whose latency matters more than durability.
	msg, err := router.groups.Persist(ctx, frame.GroupID, client.UserID, frame.Content, frame.MessageType)
	if err != nil {
		router.sendAppError(client, err)
		return
	}

	memberIDs, err := router.groups.MemberIDs(ctx, frame.GroupID, client.UserID)
	if err != nil {
		router.sendAppError(client, err)
		return
	}

	// The sender never receives their own group message back.
	recipients := slice.Filter(memberIDs, func(id string) bool { return id != client.UserID })

	online, offline, err := router.presence.PartitionOnline(ctx, recipients)
	if err != nil {
		// Cache failure: queue for everyone, replay will catch them up.
		router.logger.Warn("presence_partition_failed", slog.String("group_id", frame.GroupID), slog.Any("error", err))
		online, offline = nil, recipients
	}

	outbound := newGroupMessageFrame(msg)
	for _, userID := range online {
		router.deliverToUser(userID, outbound)
	}
	for _, userID := range offline {
		if err := router.presence.Enqueue(ctx, userID, presence.QueuedRef{MessageID: msg.ID, Kind: presence.KindGroup}); err != nil {
			router.logger.Warn("offline_enqueue_failed",
				slog.String("message_id", msg.ID),
				slog.String("recipient_id", userID),
				slog.Any("error", err),
			)
		}
	}

	router.deliverToClient(client, newAckFrame(msg.ID, AckDelivered))
	if router.metrics != nil {
		if len(online) > 0 {
			router.metrics.MessagesDelivered.Inc()
		}
		if len(offline) > 0 {
			router.metrics.MessagesQueued.Inc()
		}
	}
}

// handleRead implements the message.read frame.
func (router *Router) handleRead(ctx context.Context, client *Client, raw []byte) {
	var frame readFrame
	if err := decodeFrame(raw, &frame); err != nil {
		router.sendError(client, apperr.CodeParseError, "Malformed message.read frame")
		return
	}

	// Group scope: record the per-member receipt and tell the original
	// sender's live sockets. Offline senders get nothing; per-member read
	// state is queryable, not replayed.
	if frame.GroupID != "" {
		senderID, readAt, updated, err := router.groups.MarkRead(ctx, frame.MessageID, client.UserID)
		if err != nil {
			router.sendAppError(client, err)
			return
		}
		if updated && senderID != "" && senderID != client.UserID {
			router.deliverToUser(senderID, newReadReceiptFrame(frame.MessageID, client.UserID, readAt))
		}
		return
	}

	senderID, readAt, updated, err := router.messages.MarkRead(ctx, frame.MessageID, client.UserID)
	if err != nil {
		router.sendAppError(client, err)
		return
	}

	// Duplicate receipts are a silent no-op: the sender was already told.
	if updated && senderID != "" {
		router.deliverToUser(senderID, newReadReceiptFrame(frame.MessageID, client.UserID, readAt))
	}
}

// handleTyping implements the typing frame.
func (router *Router) handleTyping(ctx context.Context, client *Client, raw []byte) {
	var frame typingFrame
	if err := decodeFrame(raw, &frame); err != nil {
		router.sendError(client, apperr.CodeParseError, "Malformed typing frame")
		return
	}

	switch {
	case frame.GroupID != "":
		if !router.typing.Allow(client.UserID, frame.GroupID) {
			return
		}
		memberIDs, err := router.groups.MemberIDs(ctx, frame.GroupID, client.UserID)
		if err != nil {
			router.sendAppError(client, err)
			return
		}
		recipients := slice.Filter(memberIDs, func(id string) bool { return id != client.UserID })
		online, _, err := router.presence.PartitionOnline(ctx, recipients)
		if err != nil {
			return
		}
		outbound := newTypingFrame(client.UserID, "", frame.GroupID)
		for _, userID := range online {
			router.deliverToUser(userID, outbound)
		}

	case frame.RecipientID != "":
		if !router.typing.Allow(client.UserID, frame.RecipientID) {
			return
		}
		router.deliverToUser(frame.RecipientID, newTypingFrame(client.UserID, frame.RecipientID, ""))

	default:
		router.sendError(client, apperr.CodeMissingRecipient, "typing requires a 'recipient_id' or 'group_id' field")
	}
}

// # REST Dispatch

/*
SendDirect persists and routes a direct message on behalf of the REST surface.

Description: Unlike the websocket path, REST persists synchronously in both
branches — the HTTP response must be able to report storage failures.

Parameters:
  - ctx: context.Context
  - senderID: string
  - senderUsername: string (for the recipient's message.new frame)
  - recipientID: string
  - body: string
  - messageType: string ("" defaults to text)

Returns:
  - *message.Message: Stored entity
  - string: message.StatusDelivered or message.StatusQueued
  - err: Validation, unknown-recipient, or storage failures
*/
func (router *Router) SendDirect(ctx context.Context, senderID, senderUsername, recipientID, body, messageType string) (*message.Message, string, error) {
	online, err := router.presence.IsOnline(ctx, recipientID)
	if err != nil {
		router.logger.Warn("presence_check_failed", slog.String("user_id", recipientID), slog.Any("error", err))
		online = false
	}

	msg, err := router.messages.Persist(ctx, senderID, recipientID, body, messageType, online)
	if err != nil {
		return nil, "", err
	}
	msg.SenderUsername = senderUsername

	if online {
		router.deliverToUser(recipientID, newMessageFrame(msg))
		if router.metrics != nil {
			router.metrics.MessagesDelivered.Inc()
		}
		return msg, message.StatusDelivered, nil
	}

	if err := router.presence.Enqueue(ctx, recipientID, presence.QueuedRef{MessageID: msg.ID, Kind: presence.KindDirect}); err != nil {
		router.logger.Warn("offline_enqueue_failed",
			slog.String("message_id", msg.ID),
			slog.String("recipient_id", recipientID),
			slog.Any("error", err),
		)
	}
	if router.metrics != nil {
		router.metrics.MessagesQueued.Inc()
	}

	return msg, message.StatusQueued, nil
}

/*
MarkRead applies a direct-message read receipt on behalf of the REST surface.

Description: Routes through the same notification path as a message.read
frame, so the sender's live sockets learn about the receipt regardless of
which surface delivered it.

Parameters:
  - ctx: context.Context
  - messageID: string
  - readerID: string

Returns:
  - bool: Whether this call transitioned the message
  - err: Validation or execution failures
*/
func (router *Router) MarkRead(ctx context.Context, messageID, readerID string) (bool, error) {
	senderID, readAt, updated, err := router.messages.MarkRead(ctx, messageID, readerID)
	if err != nil {
		return false, err
	}

	if updated && senderID != "" {
		router.deliverToUser(senderID, newReadReceiptFrame(messageID, readerID, readAt))
	}

	return updated, nil
}

// # Outbound Plumbing

// deliverToUser enqueues a frame on every live socket of a user. Sockets
// whose buffers are full are shut down as slow clients.
func (router *Router) deliverToUser(userID string, frame []byte) int {
	delivered := 0
	for _, socket := range router.registry.SocketsFor(userID) {
		if router.deliverToClient(socket, frame) {
			delivered++
		}
	}
	return delivered
}

// deliverToClient enqueues a frame on one socket, disconnecting it when the
// outbound buffer is full.
func (router *Router) deliverToClient(client *Client, frame []byte) bool {
	if client.Enqueue(frame) {
		return true
	}

	client.Shutdown(constants.CloseOverloaded, "outbound buffer full")
	if router.metrics != nil {
		router.metrics.SlowClientCloses.Inc()
	}
	router.logger.Warn("slow_client_disconnected",
		slog.String("user_id", client.UserID),
		slog.String("socket_id", client.ID),
	)
	return false
}

// sendError emits an error frame on the client's socket.
func (router *Router) sendError(client *Client, code, msg string) {
	router.deliverToClient(client, newErrorFrame(code, msg))
}

// sendAppError maps a service error onto the wire error vocabulary.
func (router *Router) sendAppError(client *Client, err error) {
	if ae := apperr.As(err); ae != nil {
		router.sendError(client, ae.Code, ae.Message)
		return
	}
	router.logger.Error("frame_handler_error", slog.String("user_id", client.UserID), slog.Any("error", err))
	router.sendError(client, apperr.CodeInternal, "An unexpected error occurred")
}
