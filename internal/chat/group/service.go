// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package group

import (
	"context"
	"time"

	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/validate"
	"github.com/pulsechat/pulse/pkg/pagination"
	"github.com/pulsechat/pulse/pkg/uuid"
)

// Service implements group chat use cases.
//
// Membership checks happen here, not in the handlers and not in the router:
// every read or write that names a group goes through a MemberRole lookup
// first, so NOT_GROUP_MEMBER is raised from exactly one place.
type Service struct {
	repository Repository
}

// NewService constructs a new group [Service].
func NewService(repo Repository) *Service {
	return &Service{repository: repo}
}

// # Group Lifecycle

// CreateInput holds the data required to open a new group.
type CreateInput struct {
	Name        string
	Description string
	CreatorID   string
}

/*
Create validates and persists a new group with the creator as admin.

Parameters:
  - context: context.Context
  - input: CreateInput

Returns:
  - *Group: Created entity
  - err: Validation or storage failures
*/
func (service *Service) Create(context context.Context, input CreateInput) (*Group, error) {
	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, NameMaxLength).
		MaxLen(FieldDescription, input.Description, DescriptionMaxLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	group := &Group{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		CreatorID:   input.CreatorID,
	}

	if err := service.repository.CreateGroup(context, group); err != nil {
		return nil, err
	}

	return group, nil
}

/*
MyGroups lists every group the user belongs to.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Group: Newest first
  - err: Retrieval failures
*/
func (service *Service) MyGroups(context context.Context, userID string) ([]*Group, error) {
	return service.repository.GroupsFor(context, userID)
}

/*
Get returns a group with its roster, members only.

Parameters:
  - context: context.Context
  - groupID: string
  - userID: string (caller, must be a member)

Returns:
  - *Group: Hydrated entity
  - []Member: Roster
  - err: apperr.NotGroupMember or retrieval failures
*/
func (service *Service) Get(context context.Context, groupID, userID string) (*Group, []Member, error) {
	if err := service.requireMember(context, groupID, userID); err != nil {
		return nil, nil, err
	}

	group, err := service.repository.FindGroup(context, groupID)
	if err != nil {
		return nil, nil, err
	}

	members, err := service.repository.Members(context, groupID)
	if err != nil {
		return nil, nil, err
	}

	return group, members, nil
}

// # Roster Management

/*
AddMember enrolls a user into the group. Only group admins may do this.

Parameters:
  - context: context.Context
  - groupID: string
  - actorID: string (must be a group admin)
  - userID: string (user to enroll)

Returns:
  - err: Forbidden, Conflict, NotFound, or storage failures
*/
func (service *Service) AddMember(context context.Context, groupID, actorID, userID string) error {
	validator := &validate.Validator{}
	validator.UUID(FieldUserID, userID)
	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.requireAdmin(context, groupID, actorID); err != nil {
		return err
	}

	return service.repository.AddMember(context, &Member{
		GroupID:  groupID,
		UserID:   userID,
		Role:     RoleMember,
		JoinedAt: time.Now(),
	})
}

/*
RemoveMember drops a user from the group.

Description: Admins can remove anyone; a regular member can only remove
themselves (leave). The last admin cannot leave while other members remain.

Parameters:
  - context: context.Context
  - groupID: string
  - actorID: string
  - userID: string (user to remove)

Returns:
  - err: Forbidden or storage failures
*/
func (service *Service) RemoveMember(context context.Context, groupID, actorID, userID string) error {
	actorRole, err := service.repository.MemberRole(context, groupID, actorID)
	if err != nil {
		return apperr.NotGroupMember()
	}

	// Self-removal (leave) is always allowed; removing others requires admin.
	if actorID != userID && actorRole != RoleAdmin {
		return apperr.Forbidden("Only group admins can remove members")
	}

	// An admin leaving must not orphan the group.
	if actorID == userID && actorRole == RoleAdmin {
		members, err := service.repository.Members(context, groupID)
		if err != nil {
			return err
		}
		admins := 0
		for _, member := range members {
			if member.Role == RoleAdmin {
				admins++
			}
		}
		if admins == 1 && len(members) > 1 {
			return apperr.Conflict("Promote another admin before leaving the group")
		}
	}

	return service.repository.RemoveMember(context, groupID, userID)
}

// # Messaging

/*
Persist validates and stores a new group message from a member.

Parameters:
  - context: context.Context
  - groupID: string
  - senderID: string (must be a member)
  - body: string
  - messageType: string ("" defaults to [TypeText])

Returns:
  - *Message: Stored entity
  - err: NotGroupMember, validation, or storage failures
*/
func (service *Service) Persist(context context.Context, groupID, senderID, body, messageType string) (*Message, error) {
	validator := &validate.Validator{}
	validator.UUID(FieldGroupID, groupID).
		Required(FieldBody, body).
		MaxLen(FieldBody, body, BodyMaxLength)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.requireMember(context, groupID, senderID); err != nil {
		return nil, err
	}

	if messageType == "" {
		messageType = TypeText
	}

	message := &Message{
		ID:          uuid.NewV4(),
		GroupID:     groupID,
		SenderID:    senderID,
		Body:        body,
		MessageType: messageType,
		CreatedAt:   time.Now(),
	}

	if err := service.repository.CreateMessage(context, message); err != nil {
		return nil, err
	}

	return message, nil
}

/*
Messages returns one page of the group's history, members only.

Parameters:
  - context: context.Context
  - groupID: string
  - userID: string (caller)
  - params: pagination.Params

Returns:
  - []*Message: DESC page
  - pagination.Meta: Page metadata
  - err: NotGroupMember or retrieval failures
*/
func (service *Service) Messages(context context.Context, groupID, userID string, params pagination.Params) ([]*Message, pagination.Meta, error) {
	if err := service.requireMember(context, groupID, userID); err != nil {
		return nil, pagination.Meta{}, err
	}

	messages, total, err := service.repository.MessagesPage(context, groupID, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	return messages, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
MemberIDs returns the group's member user IDs for fan-out, verifying that the
requesting sender belongs to the group.

Parameters:
  - context: context.Context
  - groupID: string
  - senderID: string

Returns:
  - []string: Member user IDs (including the sender)
  - err: NotGroupMember or retrieval failures
*/
func (service *Service) MemberIDs(context context.Context, groupID, senderID string) ([]string, error) {
	if err := service.requireMember(context, groupID, senderID); err != nil {
		return nil, err
	}
	return service.repository.MemberIDs(context, groupID)
}

/*
FindMessagesByIDs hydrates a batch of group messages in the caller's order.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - []*Message: Input-ordered entities
  - err: Retrieval failures
*/
func (service *Service) FindMessagesByIDs(context context.Context, ids []string) ([]*Message, error) {
	return service.repository.FindMessagesByIDs(context, ids)
}

/*
MarkRead records a member's read receipt for a group message.

Parameters:
  - context: context.Context
  - messageID: string
  - userID: string

Returns:
  - string: SenderID of the message, for receipt routing ("" on duplicates)
  - time.Time: The recorded readat timestamp (zero on duplicates)
  - bool: Whether this receipt was the first from this member
  - err: Validation or execution failures
*/
func (service *Service) MarkRead(context context.Context, messageID, userID string) (string, time.Time, bool, error) {
	validator := &validate.Validator{}
	validator.UUID(FieldMessageID, messageID)
	if err := validator.Err(); err != nil {
		return "", time.Time{}, false, err
	}

	return service.repository.MarkMessageRead(context, messageID, userID)
}

// # Guards

// requireMember resolves the membership or raises NOT_GROUP_MEMBER.
func (service *Service) requireMember(context context.Context, groupID, userID string) error {
	if _, err := service.repository.MemberRole(context, groupID, userID); err != nil {
		if apperr.Code(err) == apperr.CodeNotFound {
			return apperr.NotGroupMember()
		}
		return err
	}
	return nil
}

// requireAdmin resolves the membership and demands the admin role.
func (service *Service) requireAdmin(context context.Context, groupID, userID string) error {
	role, err := service.repository.MemberRole(context, groupID, userID)
	if err != nil {
		if apperr.Code(err) == apperr.CodeNotFound {
			return apperr.NotGroupMember()
		}
		return err
	}
	if role != RoleAdmin {
		return apperr.Forbidden("Only group admins can manage the roster")
	}
	return nil
}
