// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

// PostgreSQL implementation of the message [Repository].
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows or FK violations) are mapped to
// domain-friendly [apperr.AppError] types via the dberr package.

package message

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsechat/pulse/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the message Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create persists a new message row into the chat.message table.

Parameters:
  - context: context.Context
  - message: *Message

Returns:
  - error: apperr.NotFound (unknown recipient) or execution errors
*/
func (repository *PostgresRepository) Create(context context.Context, message *Message) error {
	const query = `
		INSERT INTO chat.message (
			id, senderid, recipientid, body, messagetype, createdat, deliveredat, readat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.MessageType == "" {
		message.MessageType = TypeText
	}

	_, err := repository.pool.Exec(context, query,
		message.ID,
		message.SenderID,
		message.RecipientID,
		message.Body,
		message.MessageType,
		message.CreatedAt,
		message.DeliveredAt,
		message.ReadAt,
	)

	if err != nil {
		return dberr.Wrap(err, "Recipient")
	}

	return nil
}

/*
FindByIDs returns the messages matching the given IDs, in input order.

Description: A single ANY($1) query fetches the batch; the result is then
reordered in memory to match the caller's sequence, which the offline replay
path relies on for ordered delivery.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - []*Message: Hydrated entities in input order
  - error: Retrieval failures
*/
func (repository *PostgresRepository) FindByIDs(context context.Context, ids []string) ([]*Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const query = `
		SELECT m.id, m.senderid, a.username, m.recipientid, m.body, m.messagetype,
		       m.createdat, m.deliveredat, m.readat
		FROM chat.message m
		JOIN users.account a ON a.id = m.senderid
		WHERE m.id = ANY($1)`

	rows, err := repository.pool.Query(context, query, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres_message_repo_find_by_ids_failed: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Message, len(ids))
	for rows.Next() {
		message := &Message{}
		if err := rows.Scan(
			&message.ID,
			&message.SenderID,
			&message.SenderUsername,
			&message.RecipientID,
			&message.Body,
			&message.MessageType,
			&message.CreatedAt,
			&message.DeliveredAt,
			&message.ReadAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_message_repo_scan_failed: %w", err)
		}
		byID[message.ID] = message
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_message_repo_rows_failed: %w", err)
	}

	// Reorder to match the input sequence. Missing IDs (purged rows) are skipped.
	ordered := make([]*Message, 0, len(ids))
	for _, id := range ids {
		if message, ok := byID[id]; ok {
			ordered = append(ordered, message)
		}
	}

	return ordered, nil
}

/*
Conversations lists every peer the user has exchanged messages with.

Description: A window function picks the most recent message per peer; a
side aggregate counts unread inbound messages. One query, no N+1.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []ConversationSummary: Newest conversation first
  - error: Retrieval failures
*/
func (repository *PostgresRepository) Conversations(context context.Context, userID string) ([]ConversationSummary, error) {
	const query = `
		WITH conv AS (
			SELECT
				CASE WHEN m.senderid = $1 THEN m.recipientid ELSE m.senderid END AS peerid,
				m.body,
				m.createdat,
				ROW_NUMBER() OVER (
					PARTITION BY CASE WHEN m.senderid = $1 THEN m.recipientid ELSE m.senderid END
					ORDER BY m.createdat DESC
				) AS rn
			FROM chat.message m
			WHERE m.senderid = $1 OR m.recipientid = $1
		),
		unread AS (
			SELECT senderid AS peerid, COUNT(*) AS unreadcount
			FROM chat.message
			WHERE recipientid = $1 AND readat IS NULL
			GROUP BY senderid
		)
		SELECT c.peerid, a.username, a.displayname, a.avatarurl, c.body, c.createdat, COALESCE(u.unreadcount, 0)
		FROM conv c
		JOIN users.account a ON a.id = c.peerid
		LEFT JOIN unread u ON u.peerid = c.peerid
		WHERE c.rn = 1
		ORDER BY c.createdat DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_message_repo_conversations_failed: %w", err)
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var summary ConversationSummary
		if err := rows.Scan(
			&summary.PeerID,
			&summary.PeerUsername,
			&summary.PeerDisplayName,
			&summary.PeerAvatarURL,
			&summary.LastBody,
			&summary.LastAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("postgres_message_repo_conversations_scan_failed: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_message_repo_conversations_rows_failed: %w", err)
	}

	return summaries, nil
}

/*
ConversationPage returns one page of the history between two users, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - peerID: string
  - limit: int
  - offset: int

Returns:
  - []*Message: DESC page
  - int: Total message count for the pair
  - error: Retrieval failures
*/
func (repository *PostgresRepository) ConversationPage(context context.Context, userID, peerID string, limit, offset int) ([]*Message, int, error) {
	const countQuery = `
		SELECT COUNT(*)
		FROM chat.message
		WHERE (senderid = $1 AND recipientid = $2) OR (senderid = $2 AND recipientid = $1)`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, userID, peerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_message_repo_conversation_count_failed: %w", err)
	}

	const pageQuery = `
		SELECT m.id, m.senderid, a.username, m.recipientid, m.body, m.messagetype,
		       m.createdat, m.deliveredat, m.readat
		FROM chat.message m
		JOIN users.account a ON a.id = m.senderid
		WHERE (m.senderid = $1 AND m.recipientid = $2) OR (m.senderid = $2 AND m.recipientid = $1)
		ORDER BY m.createdat DESC
		LIMIT $3 OFFSET $4`

	rows, err := repository.pool.Query(context, pageQuery, userID, peerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_message_repo_conversation_page_failed: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		message := &Message{}
		if err := rows.Scan(
			&message.ID,
			&message.SenderID,
			&message.SenderUsername,
			&message.RecipientID,
			&message.Body,
			&message.MessageType,
			&message.CreatedAt,
			&message.DeliveredAt,
			&message.ReadAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_message_repo_conversation_scan_failed: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_message_repo_conversation_rows_failed: %w", err)
	}

	return messages, total, nil
}

/*
MarkRead sets readat on a single message, exactly once.

Description: The readat IS NULL guard makes duplicate receipts a no-op, and
the recipientid filter stops a user from acknowledging someone else's mail.

Parameters:
  - context: context.Context
  - messageID: string
  - readerID: string

Returns:
  - string: SenderID of the updated message ("" when nothing changed)
  - time.Time: The recorded readat timestamp
  - bool: Whether the receipt actually transitioned the message
  - error: Execution failures
*/
func (repository *PostgresRepository) MarkRead(context context.Context, messageID, readerID string) (string, time.Time, bool, error) {
	const query = `
		UPDATE chat.message
		SET readat = NOW()
		WHERE id = $1 AND recipientid = $2 AND readat IS NULL
		RETURNING senderid, readat`

	var senderID string
	var readAt time.Time
	err := repository.pool.QueryRow(context, query, messageID, readerID).Scan(&senderID, &readAt)
	if err != nil {
		if dberr.IsNoRows(err) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, fmt.Errorf("postgres_message_repo_mark_read_failed: %w", err)
	}

	return senderID, readAt, true, nil
}

/*
MarkDelivered sets deliveredat on every listed message that lacks one.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - error: Batch update failures
*/
func (repository *PostgresRepository) MarkDelivered(context context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	const query = `
		UPDATE chat.message
		SET deliveredat = NOW()
		WHERE id = ANY($1) AND deliveredat IS NULL`

	_, err := repository.pool.Exec(context, query, ids)
	if err != nil {
		return fmt.Errorf("postgres_message_repo_mark_delivered_failed: %w", err)
	}

	return nil
}

/*
Unread returns the user's unread messages, oldest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Message: readat IS NULL, ASC by creation time
  - error: Retrieval failures
*/
func (repository *PostgresRepository) Unread(context context.Context, userID string) ([]*Message, error) {
	const query = `
		SELECT m.id, m.senderid, a.username, m.recipientid, m.body, m.messagetype,
		       m.createdat, m.deliveredat, m.readat
		FROM chat.message m
		JOIN users.account a ON a.id = m.senderid
		WHERE m.recipientid = $1 AND m.readat IS NULL
		ORDER BY m.createdat ASC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_message_repo_unread_failed: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		message := &Message{}
		if err := rows.Scan(
			&message.ID,
			&message.SenderID,
			&message.SenderUsername,
			&message.RecipientID,
			&message.Body,
			&message.MessageType,
			&message.CreatedAt,
			&message.DeliveredAt,
			&message.ReadAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_message_repo_unread_scan_failed: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_message_repo_unread_rows_failed: %w", err)
	}

	return messages, nil
}
