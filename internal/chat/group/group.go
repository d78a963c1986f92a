// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package group implements group chat rooms: membership, roles, and the durable
group message log.

# Architecture

Group state is relational (PostgreSQL). Membership is the authorization
boundary for everything in this package: only members can read or send, and
only group admins can manage the roster. Per-member read state is a separate
table so a single group message can be "read" by some members and not others.
*/
package group

import "time"

// # Domain Entities

// MemberRole is the authorization level of a user inside one group.
type MemberRole string

const (
	// RoleAdmin can manage the roster and delete the group.
	RoleAdmin MemberRole = "admin"

	// RoleMember can read and send messages.
	RoleMember MemberRole = "member"
)

// Group represents one chat room.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is one user's membership in one group.
type Member struct {
	GroupID  string     `json:"group_id"`
	UserID   string     `json:"user_id"`
	Username string     `json:"username,omitempty"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Message represents one message in a group's durable log.
//
// Unlike direct messages, group messages carry no delivered/read timestamps
// on the row itself: read state is per member (chat.roommessageread).
type Message struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"group_id"`
	SenderID    string    `json:"sender_id"`
	Body        string    `json:"content"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// # Constraints

const (
	// NameMaxLength caps a group name in Unicode characters.
	NameMaxLength = 100

	// DescriptionMaxLength caps a group description.
	DescriptionMaxLength = 500

	// BodyMaxLength caps a group message body, matching direct messages.
	BodyMaxLength = 10000

	// TypeText is the default message type when the client sends none.
	TypeText = "text"

	// Validation field identifiers.
	FieldName        = "name"
	FieldDescription = "description"
	FieldGroupID     = "group_id"
	FieldUserID      = "user_id"
	FieldBody        = "content"
	FieldMessageID   = "message_id"
)
