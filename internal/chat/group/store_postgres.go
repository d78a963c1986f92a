// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

// PostgreSQL implementation of the group [Repository].

package group

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the group Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// # Groups & Membership

/*
CreateGroup persists a new group and enrolls the creator as admin.

Description: Both inserts run in one transaction so a group can never exist
without at least one admin.

Parameters:
  - context: context.Context
  - group: *Group

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRepository) CreateGroup(context context.Context, group *Group) error {
	now := time.Now()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_group_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	const groupQuery = `
		INSERT INTO chat.room (id, name, description, creatorid, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := transaction.Exec(context, groupQuery,
		group.ID, group.Name, group.Description, group.CreatorID, group.CreatedAt, group.UpdatedAt,
	); err != nil {
		return dberr.Wrap(err, "Group")
	}

	const memberQuery = `
		INSERT INTO chat.roommember (roomid, userid, role, joinedat)
		VALUES ($1, $2, $3, $4)`

	if _, err := transaction.Exec(context, memberQuery,
		group.ID, group.CreatorID, RoleAdmin, now,
	); err != nil {
		return dberr.Wrap(err, "Group member")
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_group_repo_commit_failed: %w", err)
	}

	return nil
}

/*
FindGroup returns the group with the given ID.

Parameters:
  - context: context.Context
  - groupID: string

Returns:
  - *Group: Hydrated entity
  - error: apperr.NotFound or retrieval failures
*/
func (repository *PostgresRepository) FindGroup(context context.Context, groupID string) (*Group, error) {
	const query = `
		SELECT id, name, description, creatorid, createdat, updatedat
		FROM chat.room
		WHERE id = $1`

	group := &Group{}
	err := repository.pool.QueryRow(context, query, groupID).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatorID,
		&group.CreatedAt,
		&group.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Group")
		}
		return nil, fmt.Errorf("postgres_group_repo_find_failed: %w", err)
	}

	return group, nil
}

/*
GroupsFor lists every group the user belongs to, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Group: Hydrated entities
  - error: Retrieval failures
*/
func (repository *PostgresRepository) GroupsFor(context context.Context, userID string) ([]*Group, error) {
	const query = `
		SELECT g.id, g.name, g.description, g.creatorid, g.createdat, g.updatedat
		FROM chat.room g
		JOIN chat.roommember m ON m.roomid = g.id
		WHERE m.userid = $1
		ORDER BY g.createdat DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_group_repo_groups_for_failed: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group := &Group{}
		if err := rows.Scan(
			&group.ID, &group.Name, &group.Description, &group.CreatorID, &group.CreatedAt, &group.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_group_repo_groups_for_scan_failed: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_group_repo_groups_for_rows_failed: %w", err)
	}

	return groups, nil
}

/*
Members lists the group's roster with usernames resolved.

Parameters:
  - context: context.Context
  - groupID: string

Returns:
  - []Member: Admins first, then by join time
  - error: Retrieval failures
*/
func (repository *PostgresRepository) Members(context context.Context, groupID string) ([]Member, error) {
	const query = `
		SELECT m.roomid, m.userid, a.username, m.role, m.joinedat
		FROM chat.roommember m
		JOIN users.account a ON a.id = m.userid
		WHERE m.roomid = $1
		ORDER BY m.role ASC, m.joinedat ASC`

	rows, err := repository.pool.Query(context, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("postgres_group_repo_members_failed: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var member Member
		if err := rows.Scan(&member.GroupID, &member.UserID, &member.Username, &member.Role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("postgres_group_repo_members_scan_failed: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_group_repo_members_rows_failed: %w", err)
	}

	return members, nil
}

/*
MemberIDs returns just the user IDs of the group's members.

Parameters:
  - context: context.Context
  - groupID: string

Returns:
  - []string: Member user IDs
  - error: Retrieval failures
*/
func (repository *PostgresRepository) MemberIDs(context context.Context, groupID string) ([]string, error) {
	const query = "SELECT userid FROM chat.roommember WHERE roomid = $1"

	rows, err := repository.pool.Query(context, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("postgres_group_repo_member_ids_failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres_group_repo_member_ids_scan_failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_group_repo_member_ids_rows_failed: %w", err)
	}

	return ids, nil
}

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
func (repository *PostgresRepository) MemberRole(context context.Context, groupID, userID string) (MemberRole, error) {
	const query = "SELECT role FROM chat.roommember WHERE roomid = $1 AND userid = $2"

	var role MemberRole
	err := repository.pool.QueryRow(context, query, groupID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("Group membership")
		}
		return "", fmt.Errorf("postgres_group_repo_member_role_failed: %w", err)
	}

	return role, nil
}

/*
AddMember enrolls a user into the group.

Parameters:
  - context: context.Context
  - member: *Member

Returns:
  - error: apperr.Conflict (already enrolled) or apperr.NotFound (unknown user/group)
*/
func (repository *PostgresRepository) AddMember(context context.Context, member *Member) error {
	const query = `
		INSERT INTO chat.roommember (roomid, userid, role, joinedat)
		VALUES ($1, $2, $3, $4)`

	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	if member.Role == "" {
		member.Role = RoleMember
	}

	_, err := repository.pool.Exec(context, query, member.GroupID, member.UserID, member.Role, member.JoinedAt)
	if err != nil {
		return dberr.Wrap(err, "Group member")
	}

	return nil
}

/*
RemoveMember drops a user from the group. Removing a non-member is a no-op.

Parameters:
  - context: context.Context
  - groupID: string
  - userID: string

Returns:
  - error: Execution failures
*/
func (repository *PostgresRepository) RemoveMember(context context.Context, groupID, userID string) error {
	const query = "DELETE FROM chat.roommember WHERE roomid = $1 AND userid = $2"

	_, err := repository.pool.Exec(context, query, groupID, userID)
	if err != nil {
		return fmt.Errorf("postgres_group_repo_remove_member_failed: %w", err)
	}

	return nil
}

// # Group Messages

/*
CreateMessage persists a new group message row.

Parameters:
  - context: context.Context
  - message: *Message

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRepository) CreateMessage(context context.Context, message *Message) error {
	const query = `
		INSERT INTO chat.roommessage (id, roomid, senderid, body, messagetype, createdat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.MessageType == "" {
		message.MessageType = TypeText
	}

	_, err := repository.pool.Exec(context, query,
		message.ID, message.GroupID, message.SenderID, message.Body, message.MessageType, message.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Group")
	}

	return nil
}

/*
FindMessagesByIDs returns group messages matching the given IDs, in input order.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - []*Message: Input-ordered entities (missing IDs skipped)
  - error: Retrieval failures
*/
func (repository *PostgresRepository) FindMessagesByIDs(context context.Context, ids []string) ([]*Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const query = `
		SELECT id, roomid, senderid, body, messagetype, createdat
		FROM chat.roommessage
		WHERE id = ANY($1)`

	rows, err := repository.pool.Query(context, query, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres_group_repo_find_messages_failed: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Message, len(ids))
	for rows.Next() {
		message := &Message{}
		if err := rows.Scan(&message.ID, &message.GroupID, &message.SenderID, &message.Body, &message.MessageType, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres_group_repo_find_messages_scan_failed: %w", err)
		}
		byID[message.ID] = message
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_group_repo_find_messages_rows_failed: %w", err)
	}

	ordered := make([]*Message, 0, len(ids))
	for _, id := range ids {
		if message, ok := byID[id]; ok {
			ordered = append(ordered, message)
		}
	}

	return ordered, nil
}

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
func (repository *PostgresRepository) MessagesPage(context context.Context, groupID string, limit, offset int) ([]*Message, int, error) {
	const countQuery = "SELECT COUNT(*) FROM chat.roommessage WHERE roomid = $1"

	var total int
	if err := repository.pool.QueryRow(context, countQuery, groupID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_group_repo_messages_count_failed: %w", err)
	}

	const pageQuery = `
		SELECT id, roomid, senderid, body, messagetype, createdat
		FROM chat.roommessage
		WHERE roomid = $1
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	rows, err := repository.pool.Query(context, pageQuery, groupID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_group_repo_messages_page_failed: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		message := &Message{}
		if err := rows.Scan(&message.ID, &message.GroupID, &message.SenderID, &message.Body, &message.MessageType, &message.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("postgres_group_repo_messages_scan_failed: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_group_repo_messages_rows_failed: %w", err)
	}

	return messages, total, nil
}

/*
MarkMessageRead records that a member has read a group message.

Description: ON CONFLICT DO NOTHING makes duplicate receipts idempotent; a
duplicate yields no RETURNING row, so the joined SELECT comes back empty and
the receipt reports false without a second round trip. The join resolves the
sender so the router can notify their live sockets.

Parameters:
  - context: context.Context
  - messageID: string
  - userID: string

Returns:
  - string: SenderID of the message ("" on duplicates)
  - time.Time: The recorded readat timestamp
  - bool: Whether this receipt was recorded (false on duplicates)
  - error: Execution failures
*/
func (repository *PostgresRepository) MarkMessageRead(context context.Context, messageID, userID string) (string, time.Time, bool, error) {
	const query = `
		WITH receipt AS (
			INSERT INTO chat.roommessageread (messageid, userid, readat)
			VALUES ($1, $2, NOW())
			ON CONFLICT (messageid, userid) DO NOTHING
			RETURNING messageid, readat
		)
		SELECT m.senderid, r.readat
		FROM receipt r
		JOIN chat.roommessage m ON m.id = r.messageid`

	var senderID string
	var readAt time.Time
	err := repository.pool.QueryRow(context, query, messageID, userID).Scan(&senderID, &readAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, dberr.Wrap(err, "Group message")
	}

	return senderID, readAt, true, nil
}
