// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package message_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/internal/chat/message"
	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/pkg/pagination"
	"github.com/pulsechat/pulse/pkg/uuid"
)

// # In-Memory Fake

type fakeRepo struct {
	mu       sync.Mutex
	messages map[string]*message.Message
	order    []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{messages: make(map[string]*message.Message)}
}

func (r *fakeRepo) Create(_ context.Context, msg *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ID] = msg
	r.order = append(r.order, msg.ID)
	return nil
}

func (r *fakeRepo) FindByIDs(_ context.Context, ids []string) ([]*message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*message.Message
	for _, id := range ids {
		if msg, ok := r.messages[id]; ok {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *fakeRepo) Conversations(_ context.Context, _ string) ([]message.ConversationSummary, error) {
	return nil, nil
}

func (r *fakeRepo) ConversationPage(_ context.Context, userID, peerID string, limit, offset int) ([]*message.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*message.Message
	for _, id := range r.order {
		msg := r.messages[id]
		pair := (msg.SenderID == userID && msg.RecipientID == peerID) ||
			(msg.SenderID == peerID && msg.RecipientID == userID)
		if pair {
			matched = append(matched, msg)
		}
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *fakeRepo) MarkRead(_ context.Context, messageID, readerID string) (string, time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok || msg.RecipientID != readerID || msg.ReadAt != nil {
		return "", time.Time{}, false, nil
	}
	now := time.Now()
	msg.ReadAt = &now
	return msg.SenderID, now, true, nil
}

func (r *fakeRepo) MarkDelivered(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		if msg, ok := r.messages[id]; ok && msg.DeliveredAt == nil {
			msg.DeliveredAt = &now
		}
	}
	return nil
}

func (r *fakeRepo) Unread(_ context.Context, userID string) ([]*message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*message.Message
	for _, id := range r.order {
		msg := r.messages[id]
		if msg.RecipientID == userID && msg.ReadAt == nil {
			result = append(result, msg)
		}
	}
	return result, nil
}

// # Write Path

/*
TestPrepare_DeliveredStampsTimestamp verifies deliveredat equals createdat on
the online path, and stays nil on the offline path.
*/
func TestPrepare_DeliveredStampsTimestamp(t *testing.T) {
	service := message.NewService(newFakeRepo())
	sender, recipient := uuid.New(), uuid.New()

	// 1. Online: deliveredat == createdat.
	delivered, err := service.Prepare(context.Background(), sender, recipient, "hey", "", true)
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, delivered.CreatedAt, *delivered.DeliveredAt)
	assert.True(t, delivered.Delivered())

	// 2. Offline: no delivery stamp yet.
	queued, err := service.Prepare(context.Background(), sender, recipient, "hey", "", false)
	require.NoError(t, err)
	assert.Nil(t, queued.DeliveredAt)
	assert.False(t, queued.Delivered())
}

/*
TestPrepare_MessageType verifies the empty type defaults to text and explicit
types pass through.
*/
func TestPrepare_MessageType(t *testing.T) {
	service := message.NewService(newFakeRepo())
	sender, recipient := uuid.New(), uuid.New()

	plain, err := service.Prepare(context.Background(), sender, recipient, "hey", "", false)
	require.NoError(t, err)
	assert.Equal(t, message.TypeText, plain.MessageType)

	image, err := service.Prepare(context.Background(), sender, recipient, "cat.png", "image", false)
	require.NoError(t, err)
	assert.Equal(t, "image", image.MessageType)
}

/*
TestPersist_Validation verifies body, recipient, and self-send rules.
*/
func TestPersist_Validation(t *testing.T) {
	service := message.NewService(newFakeRepo())
	sender, recipient := uuid.New(), uuid.New()

	cases := []struct {
		name        string
		senderID    string
		recipientID string
		body        string
	}{
		{"empty body", sender, recipient, "   "},
		{"bad recipient", sender, "not-a-uuid", "hello"},
		{"self send", sender, sender, "hello"},
		{"oversized body", sender, recipient, string(make([]byte, message.BodyMaxLength+1))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Persist(context.Background(), tc.senderID, tc.recipientID, tc.body, "", false)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeValidation, apperr.Code(err))
		})
	}

	// A body at exactly the limit is accepted.
	_, err := service.Persist(context.Background(), sender, recipient, string(make([]byte, message.BodyMaxLength)), "", false)
	assert.NoError(t, err)
}

/*
TestMarkRead_SingleUse verifies the receipt transitions exactly once and only
for the addressed recipient.
*/
func TestMarkRead_SingleUse(t *testing.T) {
	repo := newFakeRepo()
	service := message.NewService(repo)
	sender, recipient, stranger := uuid.New(), uuid.New(), uuid.New()

	msg, err := service.Persist(context.Background(), sender, recipient, "hello", "", false)
	require.NoError(t, err)

	// 1. A stranger's receipt is a silent no-op.
	senderID, _, updated, err := service.MarkRead(context.Background(), msg.ID, stranger)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Empty(t, senderID)

	// 2. The recipient's first receipt transitions, names the sender, and
	// carries the recorded timestamp.
	senderID, readAt, updated, err := service.MarkRead(context.Background(), msg.ID, recipient)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, sender, senderID)
	assert.False(t, readAt.IsZero())

	// 3. The duplicate is a silent no-op.
	_, _, updated, err = service.MarkRead(context.Background(), msg.ID, recipient)
	require.NoError(t, err)
	assert.False(t, updated)
}

// # Read Path

/*
TestConversationWith_Pagination verifies page math flows through to the meta.
*/
func TestConversationWith_Pagination(t *testing.T) {
	repo := newFakeRepo()
	service := message.NewService(repo)
	alice, bob := uuid.New(), uuid.New()

	for i := 0; i < 5; i++ {
		_, err := service.Persist(context.Background(), alice, bob, "msg", "", false)
		require.NoError(t, err)
	}

	page, meta, err := service.ConversationWith(context.Background(), alice, bob, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 5, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	_, _, err = service.ConversationWith(context.Background(), alice, "garbage", pagination.Params{Page: 1, Limit: 2})
	assert.Equal(t, apperr.CodeValidation, apperr.Code(err))
}

/*
TestUnread verifies only unread messages addressed to the user are returned.
*/
func TestUnread(t *testing.T) {
	repo := newFakeRepo()
	service := message.NewService(repo)
	alice, bob := uuid.New(), uuid.New()

	first, err := service.Persist(context.Background(), alice, bob, "one", "", false)
	require.NoError(t, err)
	_, err = service.Persist(context.Background(), alice, bob, "two", "", false)
	require.NoError(t, err)
	_, err = service.Persist(context.Background(), bob, alice, "reply", "", false)
	require.NoError(t, err)

	_, _, _, err = service.MarkRead(context.Background(), first.ID, bob)
	require.NoError(t, err)

	unread, err := service.Unread(context.Background(), bob)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Body)
}

// # Guards

/*
TestRequireOwnMessage verifies participants pass and strangers are rejected.
*/
func TestRequireOwnMessage(t *testing.T) {
	msg := &message.Message{SenderID: "a", RecipientID: "b"}

	assert.NoError(t, message.RequireOwnMessage(msg, "a"))
	assert.NoError(t, message.RequireOwnMessage(msg, "b"))
	assert.Equal(t, apperr.CodeForbidden, apperr.Code(message.RequireOwnMessage(msg, "c")))
}
