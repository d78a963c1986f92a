// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package message

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/validate"
	"github.com/pulsechat/pulse/pkg/pagination"
	"github.com/pulsechat/pulse/pkg/uuid"
)

// Service implements direct-message use cases on top of the durable log.
//
// The realtime router and the REST surface both depend on this service, so
// every delivery-state rule (delivered-at-creation, single-use read receipts)
// lives here exactly once.
type Service struct {
	repository Repository
}

// NewService constructs a new message [Service].
func NewService(repo Repository) *Service {
	return &Service{repository: repo}
}

// # Write Path

/*
Prepare validates a direct message and builds the entity without storing it.

Description: The caller decides the initial delivery state: when the recipient
had at least one live socket, delivered=true stamps deliveredat equal to
createdat so the log never shows a delivered message without a timestamp.
Splitting Prepare from [Service.Store] lets the realtime router fan a message
out to live sockets first and persist asynchronously afterwards.

Parameters:
  - context: context.Context
  - senderID: string
  - recipientID: string
  - body: string
  - messageType: string ("" defaults to [TypeText])
  - delivered: bool

Returns:
  - *Message: Fully-formed entity, not yet persisted
  - err: Validation failures
*/
func (service *Service) Prepare(context context.Context, senderID, recipientID, body, messageType string, delivered bool) (*Message, error) {

	// Validate the payload before touching storage.
	validator := &validate.Validator{}
	validator.Required(FieldBody, body).
		MaxLen(FieldBody, body, BodyMaxLength).
		UUID(FieldRecipient, recipientID).
		Custom(FieldRecipient, senderID == recipientID, "Cannot message yourself")

	if err := validator.Err(); err != nil {
		return nil, err
	}

	if messageType == "" {
		messageType = TypeText
	}

	now := time.Now()
	message := &Message{
		ID:          uuid.NewV4(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		MessageType: messageType,
		CreatedAt:   now,
	}
	if delivered {
		message.DeliveredAt = &now
	}

	return message, nil
}

/*
Store persists a prepared message to the durable log.

Parameters:
  - context: context.Context
  - message: *Message (from [Service.Prepare])

Returns:
  - err: Unknown-recipient or storage failures
*/
func (service *Service) Store(context context.Context, message *Message) error {
	return service.repository.Create(context, message)
}

/*
Persist validates and stores a new direct message in one call. Convenience
wrapper over Prepare and Store for callers without a fan-out-first path.

Parameters:
  - context: context.Context
  - senderID: string
  - recipientID: string
  - body: string
  - messageType: string ("" defaults to [TypeText])
  - delivered: bool

Returns:
  - *Message: Stored entity
  - err: Validation, unknown-recipient, or storage failures
*/
func (service *Service) Persist(context context.Context, senderID, recipientID, body, messageType string, delivered bool) (*Message, error) {
	message, err := service.Prepare(context, senderID, recipientID, body, messageType, delivered)
	if err != nil {
		return nil, err
	}

	if err := service.Store(context, message); err != nil {
		return nil, err
	}

	return message, nil
}

/*
MarkRead applies a read receipt to a single message.

Description: Duplicate receipts and receipts for messages not addressed to the
reader are silent no-ops (updated=false), never errors.

Parameters:
  - context: context.Context
  - messageID: string
  - readerID: string

Returns:
  - string: SenderID for read-receipt routing ("" when nothing changed)
  - time.Time: The recorded readat timestamp (zero when nothing changed)
  - bool: Whether the receipt transitioned the message
  - err: Execution failures
*/
func (service *Service) MarkRead(context context.Context, messageID, readerID string) (string, time.Time, bool, error) {
	validator := &validate.Validator{}
	validator.UUID(FieldMessageID, messageID)
	if err := validator.Err(); err != nil {
		return "", time.Time{}, false, err
	}

	return service.repository.MarkRead(context, messageID, readerID)
}

/*
MarkDelivered stamps deliveredat on a replayed batch.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - err: Batch update failures
*/
func (service *Service) MarkDelivered(context context.Context, ids []string) error {
	if err := service.repository.MarkDelivered(context, ids); err != nil {
		return fmt.Errorf("message_service_mark_delivered_failed: %w", err)
	}
	return nil
}

// # Read Path

/*
FindByIDs hydrates a batch of messages in the caller's order.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - []*Message: Input-ordered entities (missing IDs skipped)
  - err: Retrieval failures
*/
func (service *Service) FindByIDs(context context.Context, ids []string) ([]*Message, error) {
	return service.repository.FindByIDs(context, ids)
}

/*
Conversations lists the user's conversations, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []ConversationSummary: One row per peer with unread counts
  - err: Retrieval failures
*/
func (service *Service) Conversations(context context.Context, userID string) ([]ConversationSummary, error) {
	return service.repository.Conversations(context, userID)
}

/*
ConversationWith returns one page of history with a peer, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - peerID: string
  - params: pagination.Params

Returns:
  - []*Message: DESC page
  - pagination.Meta: Page metadata
  - err: Validation or retrieval failures
*/
func (service *Service) ConversationWith(context context.Context, userID, peerID string, params pagination.Params) ([]*Message, pagination.Meta, error) {
	validator := &validate.Validator{}
	validator.UUID(FieldRecipient, peerID)
	if err := validator.Err(); err != nil {
		return nil, pagination.Meta{}, err
	}

	messages, total, err := service.repository.ConversationPage(context, userID, peerID, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	return messages, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
Unread returns the user's unread messages, oldest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Message: readat IS NULL messages
  - err: Retrieval failures
*/
func (service *Service) Unread(context context.Context, userID string) ([]*Message, error) {
	return service.repository.Unread(context, userID)
}

// # Guards

// RequireOwnMessage ensures a message belongs to the given user as sender or
// recipient before exposing it over the API.
func RequireOwnMessage(message *Message, userID string) error {
	if message.SenderID != userID && message.RecipientID != userID {
		return apperr.Forbidden("You are not a participant of this message")
	}
	return nil
}
