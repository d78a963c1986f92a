// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
HTTP delivery layer for group chat management.

Sending group messages in realtime happens over the websocket; this surface
covers the management plane (create, roster, history) that clients use to set
conversations up before the first frame flows.
*/

package group

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsechat/pulse/internal/platform/middleware"
	requestutil "github.com/pulsechat/pulse/internal/platform/request"
	"github.com/pulsechat/pulse/internal/platform/respond"
	"github.com/pulsechat/pulse/internal/platform/validate"
	"github.com/pulsechat/pulse/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements group-chat HTTP endpoints.
type Handler struct {
	groupService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{groupService: service}
}

// Routes returns a [chi.Router] with the group endpoints.
//
// # Endpoints
//   - POST   /                           : Create a group (caller becomes admin).
//   - GET    /my                         : Groups the caller belongs to.
//   - GET    /{groupID}                  : Group details with roster.
//   - POST   /{groupID}/members          : Enroll a user (admin only).
//   - DELETE /{groupID}/members/{userID} : Remove a user (admin, or self-leave).
//   - GET    /{groupID}/messages         : Paged group history.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Post("/", handler.create)
	router.Get("/my", handler.myGroups)
	router.Get("/{groupID}", handler.get)
	router.Post("/{groupID}/members", handler.addMember)
	router.Delete("/{groupID}/members/{userID}", handler.removeMember)
	router.Get("/{groupID}/messages", handler.messages)

	return router
}

// # Request Payloads

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

/*
Create opens a new group with the caller as admin.

POST /api/v1/groups

Request:
  - Body: createRequest (Name, Description)

Response:
  - 201: Group
  - 400: VALIDATION_ERROR: Missing or oversized name
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	group, err := handler.groupService.Create(request.Context(), CreateInput{
		Name:        input.Name,
		Description: input.Description,
		CreatorID:   userID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, group)
}

/*
MyGroups lists the groups the caller belongs to.

GET /api/v1/groups/my

Response:
  - 200: []Group
*/
func (handler *Handler) myGroups(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	groups, err := handler.groupService.MyGroups(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, groups)
}

/*
Get returns a group with its roster.

GET /api/v1/groups/{groupID}

Response:
  - 200: {group, members}
  - 403: NOT_GROUP_MEMBER: Caller is not enrolled
  - 404: NOT_FOUND: Unknown group
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	groupID := requestutil.Param(request, "groupID")

	group, members, err := handler.groupService.Get(request.Context(), groupID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"group":   group,
		"members": members,
	})
}

/*
AddMember enrolls a user into the group.

POST /api/v1/groups/{groupID}/members

Request:
  - Body: addMemberRequest (UserID)

Response:
  - 204: Enrolled
  - 403: FORBIDDEN / NOT_GROUP_MEMBER: Caller lacks admin rights
  - 409: CONFLICT: Already a member
*/
func (handler *Handler) addMember(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	groupID := requestutil.Param(request, "groupID")

	var input addMemberRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.groupService.AddMember(request.Context(), groupID, actorID, input.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
RemoveMember drops a user from the group (admin) or leaves it (self).

DELETE /api/v1/groups/{groupID}/members/{userID}

Response:
  - 204: Removed
  - 403: FORBIDDEN: Non-admin removing someone else
  - 409: CONFLICT: Last admin leaving a populated group
*/
func (handler *Handler) removeMember(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	groupID := requestutil.Param(request, "groupID")
	userID := requestutil.Param(request, "userID")

	if err := handler.groupService.RemoveMember(request.Context(), groupID, actorID, userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Messages returns one page of the group's history, newest first.

GET /api/v1/groups/{groupID}/messages?page=&limit=

Response:
  - 200: []Message (DESC) with pagination metadata
  - 403: NOT_GROUP_MEMBER: Caller is not enrolled
*/
func (handler *Handler) messages(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	groupID := requestutil.Param(request, "groupID")
	params := pagination.FromRequest(request)

	messages, metadata, err := handler.groupService.Messages(request.Context(), groupID, userID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, messages, metadata)
}
