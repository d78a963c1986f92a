// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
HTTP delivery layer for direct messages.

The REST surface mirrors what the websocket protocol can do so that clients
without a live socket (background sync, integrations) stay first-class:
sending a message over REST routes through the same dispatcher the websocket
frames use, including online fan-out and offline queueing.
*/

package message

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsechat/pulse/internal/platform/middleware"
	requestutil "github.com/pulsechat/pulse/internal/platform/request"
	"github.com/pulsechat/pulse/internal/platform/respond"
	"github.com/pulsechat/pulse/internal/platform/validate"
	"github.com/pulsechat/pulse/pkg/pagination"
)

// # Contracts

// Delivery status strings reported by [Dispatcher.SendDirect].
const (
	StatusDelivered = "delivered"
	StatusQueued    = "queued"
)

// Dispatcher routes direct-message traffic to live sockets or the offline
// queue.
//
// Implemented by the realtime router; declared here so the REST handler does
// not import the realtime package.
type Dispatcher interface {
	// SendDirect persists and routes a direct message. The returned status is
	// [StatusDelivered] when the recipient had a live socket, [StatusQueued]
	// otherwise.
	SendDirect(ctx context.Context, senderID, senderUsername, recipientID, body, messageType string) (*Message, string, error)

	// MarkRead applies a read receipt and notifies the sender's live sockets,
	// exactly as a websocket message.read frame would.
	MarkRead(ctx context.Context, messageID, readerID string) (bool, error)
}

// # Definitions & Constructors

// Handler implements direct-message HTTP endpoints.
type Handler struct {
	messageService *Service
	dispatcher     Dispatcher
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, dispatcher Dispatcher) *Handler {
	return &Handler{messageService: service, dispatcher: dispatcher}
}

// Routes returns a [chi.Router] with the direct-message endpoints.
//
// # Endpoints
//   - GET  /conversations               : Conversation list with unread counts.
//   - GET  /conversations/{peerID}      : Paged history with one peer.
//   - POST /messages                    : Send a direct message over REST.
//   - POST /messages/{messageID}/read   : Apply a read receipt.
//   - GET  /messages/unread             : Unread messages, oldest first.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/conversations", handler.listConversations)
	router.Get("/conversations/{peerID}", handler.conversationWith)
	router.Post("/messages", handler.send)
	router.Get("/messages/unread", handler.unread)
	router.Post("/messages/{messageID}/read", handler.markRead)

	return router
}

// # Request Payloads

type sendRequest struct {
	RecipientID string `json:"recipient_id"`
	Body        string `json:"content"`
	MessageType string `json:"message_type"`
}

/*
ListConversations returns the caller's conversation list.

GET /api/v1/chat/conversations

Response:
  - 200: []ConversationSummary: Newest conversation first, with unread counts
*/
func (handler *Handler) listConversations(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	summaries, err := handler.messageService.Conversations(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, summaries)
}

/*
ConversationWith returns one page of history with a peer.

GET /api/v1/chat/conversations/{peerID}?page=&limit=

Response:
  - 200: []Message (DESC) with pagination metadata
  - 400: VALIDATION_ERROR: peerID is not a UUID
*/
func (handler *Handler) conversationWith(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	peerID := requestutil.Param(request, "peerID")
	params := pagination.FromRequest(request)

	messages, metadata, err := handler.messageService.ConversationWith(request.Context(), userID, peerID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, messages, metadata)
}

/*
Send routes a direct message through the realtime dispatcher.

POST /api/v1/chat/messages

Description: Behaves exactly like a message.send websocket frame: online
recipients get the message fanned out to every socket, offline recipients get
it queued for replay.

Request:
  - Body: sendRequest (RecipientID, Body, MessageType)

Response:
  - 201: {message, status}: Stored message plus "delivered" or "queued"
  - 400: VALIDATION_ERROR: Empty or oversized body, bad recipient ID
  - 404: NOT_FOUND: Unknown recipient
*/
func (handler *Handler) send(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input sendRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	message, status, err := handler.dispatcher.SendDirect(
		request.Context(), claims.UserID, claims.Username, input.RecipientID, input.Body, input.MessageType,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		"message": message,
		"status":  status,
	})
}

/*
Unread returns the caller's unread messages, oldest first.

GET /api/v1/chat/messages/unread

Response:
  - 200: {messages, count}
*/
func (handler *Handler) unread(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	messages, err := handler.messageService.Unread(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}

/*
MarkRead applies a read receipt over REST.

POST /api/v1/chat/messages/{messageID}/read

Description: Duplicate receipts are a silent success; the response reports
whether this call actually transitioned the message. The receipt routes
through the realtime dispatcher so the sender's live sockets see the same
message.read notification a websocket receipt produces.

Response:
  - 200: {updated}: true exactly once per message
  - 400: VALIDATION_ERROR: messageID is not a UUID
*/
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	messageID := requestutil.Param(request, "messageID")

	updated, err := handler.dispatcher.MarkRead(request.Context(), messageID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"updated": updated,
	})
}
