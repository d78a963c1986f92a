// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/internal/chat/group"
	"github.com/pulsechat/pulse/internal/chat/message"
	"github.com/pulsechat/pulse/internal/chat/presence"
	"github.com/pulsechat/pulse/internal/chat/realtime"
	"github.com/pulsechat/pulse/internal/platform/apperr"
)

// # Fake Presence

// fakePresence is an in-memory stand-in for the Redis presence store.
type fakePresence struct {
	mu         sync.Mutex
	online     map[string]bool
	queues     map[string][]presence.QueuedRef
	heartbeats int
	failDrain  bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		online: make(map[string]bool),
		queues: make(map[string][]presence.QueuedRef),
	}
}

func (p *fakePresence) SetOnline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = true
	return nil
}

func (p *fakePresence) SetOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return nil
}

func (p *fakePresence) IsOnline(_ context.Context, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID], nil
}

func (p *fakePresence) RefreshHeartbeat(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heartbeats++
	return nil
}

func (p *fakePresence) PartitionOnline(_ context.Context, userIDs []string) ([]string, []string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var onlineIDs, offlineIDs []string
	for _, id := range userIDs {
		if p.online[id] {
			onlineIDs = append(onlineIDs, id)
		} else {
			offlineIDs = append(offlineIDs, id)
		}
	}
	return onlineIDs, offlineIDs, nil
}

func (p *fakePresence) Enqueue(_ context.Context, userID string, ref presence.QueuedRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[userID] = append(p.queues[userID], ref)
	return nil
}

func (p *fakePresence) Drain(_ context.Context, userID string) ([]presence.QueuedRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failDrain {
		return nil, apperr.Internal(nil)
	}
	refs := p.queues[userID]
	delete(p.queues, userID)
	return refs, nil
}

func (p *fakePresence) queued(userID string) []presence.QueuedRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presence.QueuedRef(nil), p.queues[userID]...)
}

// # Fake Message Log

type fakeMessageRepo struct {
	mu         sync.Mutex
	messages   map[string]*message.Message
	delivered  []string
	failCreate bool
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*message.Message)}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return apperr.PersistFailed(nil)
	}
	r.messages[msg.ID] = msg
	return nil
}

func (r *fakeMessageRepo) FindByIDs(_ context.Context, ids []string) ([]*message.Message, error) {
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

func (r *fakeMessageRepo) Conversations(_ context.Context, _ string) ([]message.ConversationSummary, error) {
	return nil, nil
}

func (r *fakeMessageRepo) ConversationPage(_ context.Context, _, _ string, _, _ int) ([]*message.Message, int, error) {
	return nil, 0, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, messageID, readerID string) (string, time.Time, bool, error) {
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

func (r *fakeMessageRepo) MarkDelivered(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, ids...)
	now := time.Now()
	for _, id := range ids {
		if msg, ok := r.messages[id]; ok && msg.DeliveredAt == nil {
			msg.DeliveredAt = &now
		}
	}
	return nil
}

func (r *fakeMessageRepo) Unread(_ context.Context, _ string) ([]*message.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) stored(id string) *message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[id]
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// # Fake Group Log

type fakeGroupRepo struct {
	mu       sync.Mutex
	groups   map[string]*group.Group
	members  map[string]map[string]group.MemberRole
	messages map[string]*group.Message
	receipts map[string]map[string]bool
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:   make(map[string]*group.Group),
		members:  make(map[string]map[string]group.MemberRole),
		messages: make(map[string]*group.Message),
		receipts: make(map[string]map[string]bool),
	}
}

func (r *fakeGroupRepo) CreateGroup(_ context.Context, g *group.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = g
	r.members[g.ID] = map[string]group.MemberRole{g.CreatorID: group.RoleAdmin}
	return nil
}

func (r *fakeGroupRepo) FindGroup(_ context.Context, groupID string) (*group.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[groupID]; ok {
		return g, nil
	}
	return nil, apperr.NotFound("Group")
}

func (r *fakeGroupRepo) GroupsFor(_ context.Context, _ string) ([]*group.Group, error) {
	return nil, nil
}

func (r *fakeGroupRepo) Members(_ context.Context, groupID string) ([]group.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []group.Member
	for userID, role := range r.members[groupID] {
		result = append(result, group.Member{GroupID: groupID, UserID: userID, Role: role})
	}
	return result, nil
}

func (r *fakeGroupRepo) MemberIDs(_ context.Context, groupID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for userID := range r.members[groupID] {
		ids = append(ids, userID)
	}
	return ids, nil
}

func (r *fakeGroupRepo) MemberRole(_ context.Context, groupID, userID string) (group.MemberRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.members[groupID][userID]; ok {
		return role, nil
	}
	return "", apperr.NotFound("Membership")
}

func (r *fakeGroupRepo) AddMember(_ context.Context, member *group.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[member.GroupID][member.UserID] = member.Role
	return nil
}

func (r *fakeGroupRepo) RemoveMember(_ context.Context, groupID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[groupID], userID)
	return nil
}

func (r *fakeGroupRepo) CreateMessage(_ context.Context, msg *group.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ID] = msg
	return nil
}

func (r *fakeGroupRepo) FindMessagesByIDs(_ context.Context, ids []string) ([]*group.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*group.Message
	for _, id := range ids {
		if msg, ok := r.messages[id]; ok {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *fakeGroupRepo) MessagesPage(_ context.Context, _ string, _, _ int) ([]*group.Message, int, error) {
	return nil, 0, nil
}

func (r *fakeGroupRepo) MarkMessageRead(_ context.Context, messageID, userID string) (string, time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return "", time.Time{}, false, nil
	}
	if r.receipts[messageID] == nil {
		r.receipts[messageID] = make(map[string]bool)
	}
	if r.receipts[messageID][userID] {
		return "", time.Time{}, false, nil
	}
	r.receipts[messageID][userID] = true
	return msg.SenderID, time.Now(), true, nil
}

// # Test Environment

// env wires a Router against in-memory fakes and a real registry.
type env struct {
	registry *realtime.Registry
	router   *realtime.Router
	presence *fakePresence
	msgRepo  *fakeMessageRepo
	grpRepo  *fakeGroupRepo
	messages *message.Service
	groups   *group.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pres := newFakePresence()
	msgRepo := newFakeMessageRepo()
	grpRepo := newFakeGroupRepo()
	messages := message.NewService(msgRepo)
	groups := group.NewService(grpRepo)

	registry := realtime.NewRegistry(2, pres, nil, logger)
	router := realtime.NewRouter(registry, pres, messages, groups, nil, logger)

	return &env{
		registry: registry,
		router:   router,
		presence: pres,
		msgRepo:  msgRepo,
		grpRepo:  grpRepo,
		messages: messages,
		groups:   groups,
	}
}

// connect registers a socket for the user, flipping their presence online.
func (e *env) connect(t *testing.T, userID string) *realtime.Client {
	t.Helper()
	client := realtime.NewClient(userID, "user", 16)
	e.registry.Register(context.Background(), client)
	return client
}

// frame decodes one queued outbound frame, failing the test when none arrives.
func frame(t *testing.T, client *realtime.Client) map[string]any {
	t.Helper()
	select {
	case raw := <-client.Send:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		return decoded
	case <-time.After(2 * time.Second):
		t.Fatal("expected an outbound frame, got none")
		return nil
	}
}

// noFrame asserts the client's buffer is empty.
func noFrame(t *testing.T, client *realtime.Client) {
	t.Helper()
	select {
	case raw := <-client.Send:
		t.Fatalf("expected no outbound frame, got: %s", raw)
	default:
	}
}

// send dispatches a marshaled inbound frame through the router.
func (e *env) send(t *testing.T, client *realtime.Client, payload map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	e.router.HandleFrame(context.Background(), client, raw)
}
