// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package message implements the durable direct-message log.

It defines the core domain entity (Message) and the read/write operations the
realtime router and the REST surface share. PostgreSQL is the source of truth;
delivery state lives in nullable timestamps rather than status enums so that
every state transition is a single UPDATE.

# Lifecycle

A message is created exactly once and then moves monotonically:

	createdat -> deliveredat -> readat

deliveredat is set at creation time when the recipient had a live socket, or
later by the offline replay worker. readat is set by an explicit read receipt.
*/
package message

import "time"

// # Domain Entities

// Message represents one direct message in the durable log.
//
// SenderUsername is denormalized for display: the stores resolve it with a
// join, the realtime router fills it from the sending socket's claims. It is
// never written back.
type Message struct {
	ID             string     `json:"id"`
	SenderID       string     `json:"sender_id"`
	SenderUsername string     `json:"sender_username,omitempty"`
	RecipientID    string     `json:"recipient_id"`
	Body           string     `json:"content"`
	MessageType    string     `json:"message_type"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// Delivered reports whether the message has reached at least one recipient socket.
func (m *Message) Delivered() bool { return m.DeliveredAt != nil }

// Read reports whether the recipient has acknowledged the message.
func (m *Message) Read() bool { return m.ReadAt != nil }

// ConversationSummary is one row of the conversation list: the peer, the most
// recent message exchanged with them, and how many of their messages are unread.
type ConversationSummary struct {
	PeerID          string    `json:"peer_id"`
	PeerUsername    string    `json:"peer_username"`
	PeerDisplayName string    `json:"peer_display_name"`
	PeerAvatarURL   string    `json:"peer_avatar_url,omitempty"`
	LastBody        string    `json:"last_body"`
	LastAt          time.Time `json:"last_at"`
	UnreadCount     int       `json:"unread_count"`
}

// # Constraints

const (
	// BodyMaxLength caps a message body in Unicode characters.
	BodyMaxLength = 10000

	// TypeText is the default message type when the client sends none.
	TypeText = "text"

	// FieldRecipient, FieldBody, FieldMessageID are validation identifiers.
	FieldRecipient = "recipient_id"
	FieldBody      = "content"
	FieldMessageID = "message_id"
)
