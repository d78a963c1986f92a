// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package group

import (
	"context"
	"time"
)

// # Group Data Access

// Repository defines the data access contract for groups, membership, and
// the group message log.
type Repository interface {

	/*
		CreateGroup persists a new group and enrolls the creator as admin in
		one transaction.

		Parameters:
		  - context: context.Context
		  - group: *Group

		Returns:
		  - error: Persistence failures
	*/
	CreateGroup(context context.Context, group *Group) error

	/*
		FindGroup returns the group with the given ID.

		Parameters:
		  - context: context.Context
		  - groupID: string

		Returns:
		  - *Group: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindGroup(context context.Context, groupID string) (*Group, error)

	/*
		GroupsFor lists every group the user belongs to, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Group: Hydrated entities
		  - error: Retrieval failures
	*/
	GroupsFor(context context.Context, userID string) ([]*Group, error)

	/*
		Members lists the group's roster.

		Parameters:
		  - context: context.Context
		  - groupID: string

		Returns:
		  - []Member: Roster with usernames resolved
		  - error: Retrieval failures
	*/
	Members(context context.Context, groupID string) ([]Member, error)

	/*
		MemberIDs returns just the user IDs of the group's members. This is
		the fan-out hot path, kept separate from the roster query.

		Parameters:
		  - context: context.Context
		  - groupID: string

		Returns:
		  - []string: Member user IDs
		  - error: Retrieval failures
	*/
	MemberIDs(context context.Context, groupID string) ([]string, error)

	/*
		MemberRole returns the user's role inside the group.

		Parameters:
		  - context: context.Context
		  - groupID: string
		  - userID: string

		Returns:
		  - MemberRole: admin or member
		  - error: apperr.NotFound when the user is not a member
	*/
	MemberRole(context context.Context, groupID, userID string) (MemberRole, error)

	/*
		AddMember enrolls a user into the group.

		Parameters:
		  - context: context.Context
		  - member: *Member

		Returns:
		  - error: apperr.Conflict when already enrolled, apperr.NotFound for
		    unknown users or groups
	*/
	AddMember(context context.Context, member *Member) error

	/*
		RemoveMember drops a user from the group.

		Parameters:
		  - context: context.Context
		  - groupID: string
		  - userID: string

		Returns:
		  - error: Persistence failures (removing a non-member is a no-op)
	*/
	RemoveMember(context context.Context, groupID, userID string) error

	/*
		CreateMessage persists a new group message row.

		Parameters:
		  - context: context.Context
		  - message: *Message

		Returns:
		  - error: Persistence failures
	*/
	CreateMessage(context context.Context, message *Message) error

	/*
		FindMessagesByIDs returns group messages matching the given IDs, in
		the order the IDs were supplied.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - []*Message: Input-ordered entities (missing IDs skipped)
		  - error: Retrieval failures
	*/
	FindMessagesByIDs(context context.Context, ids []string) ([]*Message, error)

	/*
		MessagesPage returns one page of the group's history, newest first.

		Parameters:
		  - context: context.Context
		  - groupID: string
		  - limit: int
		  - offset: int

		Returns:
		  - []*Message: DESC page
		  - int: Total message count for the group
		  - error: Retrieval failures
	*/
	MessagesPage(context context.Context, groupID string, limit, offset int) ([]*Message, int, error)

	/*
		MarkMessageRead records that a member has read a group message.

		Parameters:
		  - context: context.Context
		  - messageID: string
		  - userID: string

		Returns:
		  - string: SenderID of the message, for receipt routing
		  - time.Time: The recorded readat timestamp
		  - bool: false when the member had already read it (duplicate receipts
		    are a silent no-op)
		  - error: Execution failures
	*/
	MarkMessageRead(context context.Context, messageID, userID string) (string, time.Time, bool, error)
}
