// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pulsechat/pulse/internal/platform/constants"
	"github.com/pulsechat/pulse/internal/platform/metrics"
)

// PresenceMarker is the slice of the presence store the registry needs: it
// flips the reachability marker as sockets come and go.
type PresenceMarker interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// Registry tracks every live socket on this server, grouped by user.
//
// # Concurrency
//
// A single RWMutex guards the map. Lookups on the message hot path take the
// read lock only; register/unregister take the write lock. Per-user socket
// slices are kept oldest-first so cap eviction is an O(1) head pop.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string][]*Client

	maxPerUser int
	presence   PresenceMarker
	metrics    *metrics.Set
	logger     *slog.Logger
}

// NewRegistry constructs a connection [Registry].
func NewRegistry(maxPerUser int, presence PresenceMarker, collectors *metrics.Set, logger *slog.Logger) *Registry {
	if maxPerUser <= 0 {
		maxPerUser = constants.DefaultMaxConnectionsPerUser
	}
	return &Registry{
		byUser:     make(map[string][]*Client),
		maxPerUser: maxPerUser,
		presence:   presence,
		metrics:    collectors,
		logger:     logger,
	}
}

/*
Register adds a socket and marks its owner online.

Description: When the user is already at the connection cap, their OLDEST
socket is evicted with a policy-violation close before the new one is
admitted — newest connection wins, which matches how users actually recover
from wedged devices.

Parameters:
  - ctx: context.Context (for the presence write)
  - client: *Client

Returns:
  - *Client: The evicted socket, or nil
*/
func (registry *Registry) Register(ctx context.Context, client *Client) *Client {
	var evicted *Client

	registry.mu.Lock()
	sockets := registry.byUser[client.UserID]
	if len(sockets) >= registry.maxPerUser {
		evicted = sockets[0]
		sockets = sockets[1:]
	}
	registry.byUser[client.UserID] = append(sockets, client)
	registry.mu.Unlock()

	if evicted != nil {
		evicted.Shutdown(constants.ClosePolicyViolation, "connection limit exceeded")
		if registry.metrics != nil {
			registry.metrics.ConnectionsEvicted.Inc()
			// The evicted socket's eventual Unregister is a no-op (its slot is
			// already gone), so its live-gauge decrement happens here.
			registry.metrics.ConnectionsLive.Dec()
		}
		registry.logger.Info("socket_evicted",
			slog.String("user_id", client.UserID),
			slog.String("evicted_socket", evicted.ID),
		)
	}

	if err := registry.presence.SetOnline(ctx, client.UserID); err != nil {
		// Presence write failures degrade delivery to queued-then-replayed,
		// they do not block the connection.
		registry.logger.Warn("presence_set_online_failed",
			slog.String("user_id", client.UserID),
			slog.Any("error", err),
		)
	}

	if registry.metrics != nil {
		registry.metrics.ConnectionsTotal.Inc()
		registry.metrics.ConnectionsLive.Inc()
	}

	return evicted
}

/*
Unregister removes a socket; when it was the user's last, the presence marker
is cleared so new messages queue instead of fanning out into the void.

Parameters:
  - ctx: context.Context (for the presence write)
  - client: *Client

Returns:
  - bool: Whether this was the user's last socket
*/
func (registry *Registry) Unregister(ctx context.Context, client *Client) bool {
	registry.mu.Lock()
	sockets := registry.byUser[client.UserID]
	found := false
	for i, candidate := range sockets {
		if candidate.ID == client.ID {
			sockets = append(sockets[:i], sockets[i+1:]...)
			found = true
			break
		}
	}
	last := false
	if len(sockets) == 0 {
		delete(registry.byUser, client.UserID)
		last = true
	} else {
		registry.byUser[client.UserID] = sockets
	}
	registry.mu.Unlock()

	// An evicted socket is replaced, not departed: its slot was already
	// reassigned during Register, so only a found socket counts.
	if !found {
		return false
	}

	if last {
		if err := registry.presence.SetOffline(ctx, client.UserID); err != nil {
			registry.logger.Warn("presence_set_offline_failed",
				slog.String("user_id", client.UserID),
				slog.Any("error", err),
			)
		}
	}

	if registry.metrics != nil {
		registry.metrics.ConnectionsLive.Dec()
	}

	return last
}

// SocketsFor returns a snapshot of the user's live sockets. The returned
// slice is a copy; callers may iterate without holding any lock.
func (registry *Registry) SocketsFor(userID string) []*Client {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	sockets := registry.byUser[userID]
	if len(sockets) == 0 {
		return nil
	}

	snapshot := make([]*Client, len(sockets))
	copy(snapshot, sockets)
	return snapshot
}

// CountFor returns the number of live sockets a user holds on this server.
func (registry *Registry) CountFor(userID string) int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.byUser[userID])
}

// UserCount returns the number of distinct users with at least one socket.
func (registry *Registry) UserCount() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.byUser)
}

// Len returns the total number of registered sockets.
func (registry *Registry) Len() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	total := 0
	for _, sockets := range registry.byUser {
		total += len(sockets)
	}
	return total
}
