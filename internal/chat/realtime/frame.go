// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package realtime implements the websocket core of Pulse: the connection
registry, the frame router, offline replay, and the HTTP gateway that
upgrades connections.

# Wire Protocol

Every frame is a JSON object with a "type" discriminator. Decoding happens in
two passes: the envelope first (just the type), then the type-specific
payload. A frame that fails either pass produces an error frame on the same
socket; the connection stays open, because one malformed frame must not kill
an otherwise healthy session.

Inbound:  message.send, message.group.send, message.read, typing, ping
Outbound: message.new, message.group.new, messages.offline, message.ack,
          message.read, typing, pong, error
*/
package realtime

import (
	"encoding/json"
	"time"

	"github.com/pulsechat/pulse/internal/chat/group"
	"github.com/pulsechat/pulse/internal/chat/message"
)

// # Frame Types

// Inbound frame type discriminators.
const (
	TypeMessageSend      = "message.send"
	TypeGroupMessageSend = "message.group.send"
	TypeMessageRead      = "message.read"
	TypeTyping           = "typing"
	TypePing             = "ping"
)

// Outbound frame type discriminators. TypeMessageRead doubles as the
// server-to-client receipt notification.
const (
	TypeMessageNew      = "message.new"
	TypeGroupMessageNew = "message.group.new"
	TypeOfflineMessages = "messages.offline"
	TypeMessageAck      = "message.ack"
	TypePong            = "pong"
	TypeError           = "error"
)

// Acknowledgement statuses carried by message.ack frames.
const (
	AckDelivered = "delivered"
	AckQueued    = "queued"
)

// # Inbound Payloads

// envelope is the first decoding pass: just the discriminator.
type envelope struct {
	Type string `json:"type"`
}

type sendFrame struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	// MessageType is optional; the message service defaults it to "text".
	MessageType string `json:"message_type"`
}

type groupSendFrame struct {
	GroupID     string `json:"group_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
}

type readFrame struct {
	MessageID string `json:"message_id"`
	// GroupID switches the receipt to group scope when present.
	GroupID string `json:"group_id,omitempty"`
}

type typingFrame struct {
	RecipientID string `json:"recipient_id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

// # Outbound Payloads

// messageNewFrame is the flattened wire form of a direct message.
type messageNewFrame struct {
	Type           string    `json:"type"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	RecipientID    string    `json:"recipient_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	CreatedAt      time.Time `json:"created_at"`
}

type groupMessageNewFrame struct {
	Type        string    `json:"type"`
	MessageID   string    `json:"message_id"`
	GroupID     string    `json:"group_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// offlineFrame carries the replayed backlog: each entry is a complete
// message.new or message.group.new frame, so clients reuse their live-frame
// dispatch for catch-up traffic.
type offlineFrame struct {
	Type     string            `json:"type"`
	Count    int               `json:"count"`
	Messages []json.RawMessage `json:"messages"`
}

type ackFrame struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// readReceiptFrame notifies a sender that their message was read.
type readReceiptFrame struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	ReaderID  string    `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}

type typingOutFrame struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	RecipientID string `json:"recipient_id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

type pongFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// # Encoding

// encodeFrame marshals an outbound frame to its wire form.
//
// Marshal errors are impossible for our frame structs (no channels, no
// cycles), so the error is swallowed and an empty payload returned; the
// write pump drops empty payloads.
func encodeFrame(frame any) []byte {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil
	}
	return payload
}

// decodeFrame unmarshals an inbound frame payload into dst.
func decodeFrame(raw []byte, dst any) error {
	return json.Unmarshal(raw, dst)
}

// newMessageFrame builds a pre-marshaled message.new frame.
func newMessageFrame(msg *message.Message) []byte {
	return encodeFrame(messageNewFrame{
		Type:           TypeMessageNew,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		SenderUsername: msg.SenderUsername,
		RecipientID:    msg.RecipientID,
		Content:        msg.Body,
		MessageType:    msg.MessageType,
		CreatedAt:      msg.CreatedAt,
	})
}

// newGroupMessageFrame builds a pre-marshaled message.group.new frame.
func newGroupMessageFrame(msg *group.Message) []byte {
	return encodeFrame(groupMessageNewFrame{
		Type:        TypeGroupMessageNew,
		MessageID:   msg.ID,
		GroupID:     msg.GroupID,
		SenderID:    msg.SenderID,
		Content:     msg.Body,
		MessageType: msg.MessageType,
		CreatedAt:   msg.CreatedAt,
	})
}

// newOfflineFrame builds a pre-marshaled messages.offline frame from
// already-encoded message frames.
func newOfflineFrame(frames [][]byte) []byte {
	entries := make([]json.RawMessage, len(frames))
	for i, frame := range frames {
		entries[i] = frame
	}
	return encodeFrame(offlineFrame{Type: TypeOfflineMessages, Count: len(entries), Messages: entries})
}

// newAckFrame builds a pre-marshaled message.ack frame.
func newAckFrame(messageID, status string) []byte {
	return encodeFrame(ackFrame{Type: TypeMessageAck, MessageID: messageID, Status: status, Timestamp: time.Now()})
}

// newReadReceiptFrame builds a pre-marshaled outbound message.read frame.
func newReadReceiptFrame(messageID, readerID string, readAt time.Time) []byte {
	return encodeFrame(readReceiptFrame{Type: TypeMessageRead, MessageID: messageID, ReaderID: readerID, ReadAt: readAt})
}

// newTypingFrame builds a pre-marshaled outbound typing frame.
func newTypingFrame(userID, recipientID, groupID string) []byte {
	return encodeFrame(typingOutFrame{Type: TypeTyping, UserID: userID, RecipientID: recipientID, GroupID: groupID})
}

// newPongFrame builds a pre-marshaled pong frame.
func newPongFrame() []byte {
	return encodeFrame(pongFrame{Type: TypePong, Timestamp: time.Now()})
}

// newErrorFrame builds a pre-marshaled error frame.
func newErrorFrame(code, msg string) []byte {
	return encodeFrame(errorFrame{Type: TypeError, Code: code, Message: msg})
}
