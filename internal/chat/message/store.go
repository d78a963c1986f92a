// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package message

import (
	"context"
	"time"
)

// # Message Data Access

// Repository defines the data access contract for the durable message log.
type Repository interface {

	/*
		Create persists a new message row.

		Parameters:
		  - context: context.Context
		  - message: *Message (DeliveredAt pre-set when the recipient was online)

		Returns:
		  - error: Persistence failures (FK violation when recipient is unknown)
	*/
	Create(context context.Context, message *Message) error

	/*
		FindByIDs returns the messages matching the given IDs, in the order
		the IDs were supplied.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - []*Message: Hydrated entities (missing IDs are silently skipped)
		  - error: Retrieval failures
	*/
	FindByIDs(context context.Context, ids []string) ([]*Message, error)

	/*
		Conversations lists every peer the user has exchanged messages with,
		newest conversation first, with unread counts.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []ConversationSummary: One row per peer
		  - error: Retrieval failures
	*/
	Conversations(context context.Context, userID string) ([]ConversationSummary, error)

	/*
		ConversationPage returns one page of the message history between two
		users, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - peerID: string
		  - limit: int
		  - offset: int

		Returns:
		  - []*Message: Page of messages (DESC by creation time)
		  - int: Total message count for the pair
		  - error: Retrieval failures
	*/
	ConversationPage(context context.Context, userID, peerID string, limit, offset int) ([]*Message, int, error)

	/*
		MarkRead sets readat on a single message, once.

		Parameters:
		  - context: context.Context
		  - messageID: string
		  - readerID: string (must be the recipient)

		Returns:
		  - string: SenderID of the message, for read-receipt routing
		  - time.Time: The recorded readat timestamp
		  - bool: false when the message was already read (or not addressed to
		    the reader) — duplicate receipts are a silent no-op
		  - error: Execution failures
	*/
	MarkRead(context context.Context, messageID, readerID string) (string, time.Time, bool, error)

	/*
		MarkDelivered sets deliveredat on every listed message that does not
		have one yet. Used by the offline replay worker after a batch flush.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - error: Batch update failures
	*/
	MarkDelivered(context context.Context, ids []string) error

	/*
		Unread returns the user's unread messages, oldest first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Message: Messages with readat IS NULL addressed to the user
		  - error: Retrieval failures
	*/
	Unread(context context.Context, userID string) ([]*Message, error)
}
