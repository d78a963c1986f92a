// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package presence implements the volatile reachability layer on Redis.

Two key families live here:

  - user:online:<user_id>   : Presence marker with a heartbeat TTL. Existence
    of the key means "deliver now"; expiry means "queue for later". The TTL
    makes crashed servers self-healing — no cleanup job needed.
  - user:offline:<user_id>  : A list of message references ({message_id, kind})
    queued while the user was unreachable, drained on the next connect.

Only references are cached, never message bodies: the durable log is the
single source of message content.
*/
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulsechat/pulse/internal/platform/constants"
	"github.com/pulsechat/pulse/pkg/uuid"
)

// # Queue Reference Types

// Message kinds stored in offline queue references.
const (
	KindDirect = "direct"
	KindGroup  = "group"
)

// QueuedRef is one offline-queue entry: a pointer into the durable log.
type QueuedRef struct {
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"`
}

// # Store

// Store implements presence tracking and offline queues on a Redis client.
type Store struct {
	client       *redis.Client
	heartbeatTTL time.Duration
	queueTTL     time.Duration
}

// NewStore constructs a presence [Store].
//
// # Parameters
//   - client: Shared Redis client.
//   - heartbeatTTL: Presence key lifetime; refreshed by every inbound frame.
//   - queueTTL: Offline queue retention before the durable log is the only copy.
func NewStore(client *redis.Client, heartbeatTTL, queueTTL time.Duration) *Store {
	if heartbeatTTL <= 0 {
		heartbeatTTL = constants.DefaultHeartbeatTTL
	}
	if queueTTL <= 0 {
		queueTTL = constants.DefaultOfflineQueueTTL
	}
	return &Store{client: client, heartbeatTTL: heartbeatTTL, queueTTL: queueTTL}
}

// # Presence

/*
SetOnline marks a user as reachable with a fresh heartbeat TTL.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Cache write failures
*/
func (store *Store) SetOnline(context context.Context, userID string) error {
	key := onlineKey(userID)
	if err := store.client.Set(context, key, "1", store.heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("presence_set_online_failed: %w", err)
	}
	return nil
}

/*
RefreshHeartbeat extends the presence TTL. Called on every inbound frame,
including pings, so any traffic keeps the user reachable.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Cache write failures
*/
func (store *Store) RefreshHeartbeat(context context.Context, userID string) error {
	// SET rather than EXPIRE: also resurrects a key that just lapsed, which
	// is correct because a frame arriving proves the socket is alive.
	return store.SetOnline(context, userID)
}

/*
SetOffline removes the presence marker. Called when a user's last socket
unregisters; sockets remaining on other devices keep the key alive via their
own heartbeats.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Cache write failures
*/
func (store *Store) SetOffline(context context.Context, userID string) error {
	if err := store.client.Del(context, onlineKey(userID)).Err(); err != nil {
		return fmt.Errorf("presence_set_offline_failed: %w", err)
	}
	return nil
}

/*
IsOnline reports whether the user currently has a live presence marker.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - bool: Reachability
  - error: Cache read failures
*/
func (store *Store) IsOnline(context context.Context, userID string) (bool, error) {
	count, err := store.client.Exists(context, onlineKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence_is_online_failed: %w", err)
	}
	return count > 0, nil
}

/*
PartitionOnline splits a set of users into reachable and unreachable, using a
single pipelined round trip. This is the group fan-out hot path.

Parameters:
  - context: context.Context
  - userIDs: []string

Returns:
  - []string: Online user IDs
  - []string: Offline user IDs
  - error: Cache read failures
*/
func (store *Store) PartitionOnline(context context.Context, userIDs []string) ([]string, []string, error) {
	if len(userIDs) == 0 {
		return nil, nil, nil
	}

	pipeline := store.client.Pipeline()
	commands := make([]*redis.IntCmd, len(userIDs))
	for i, userID := range userIDs {
		commands[i] = pipeline.Exists(context, onlineKey(userID))
	}

	if _, err := pipeline.Exec(context); err != nil {
		return nil, nil, fmt.Errorf("presence_partition_failed: %w", err)
	}

	var online, offline []string
	for i, command := range commands {
		if command.Val() > 0 {
			online = append(online, userIDs[i])
		} else {
			offline = append(offline, userIDs[i])
		}
	}

	return online, offline, nil
}

// # Offline Queue

/*
Enqueue appends a message reference to a user's offline queue.

Description: RPUSH keeps the queue oldest-first so a later drain replays
messages in send order. Every push refreshes the queue's retention TTL.

Parameters:
  - context: context.Context
  - userID: string
  - ref: QueuedRef

Returns:
  - error: Cache write failures
*/
func (store *Store) Enqueue(context context.Context, userID string, ref QueuedRef) error {
	payload, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("presence_enqueue_marshal_failed: %w", err)
	}

	key := offlineKey(userID)
	pipeline := store.client.TxPipeline()
	pipeline.RPush(context, key, payload)
	pipeline.Expire(context, key, store.queueTTL)

	if _, err := pipeline.Exec(context); err != nil {
		return fmt.Errorf("presence_enqueue_failed: %w", err)
	}

	return nil
}

/*
Drain atomically claims and empties the user's offline queue.

Description: The queue is RENAMEd to a unique work key first, so a concurrent
connect on another server cannot replay the same batch; entries pushed after
the rename land in a fresh queue and are picked up by the next drain.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []QueuedRef: Oldest-first references (nil when the queue was empty)
  - error: Cache failures
*/
func (store *Store) Drain(context context.Context, userID string) ([]QueuedRef, error) {
	key := offlineKey(userID)
	workKey := fmt.Sprintf("%s:drain:%s", key, uuid.New())

	// RENAME fails with an error when the source key does not exist; treat
	// that as an empty queue.
	if err := store.client.Rename(context, key, workKey).Err(); err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("presence_drain_claim_failed: %w", err)
	}

	entries, err := store.client.LRange(context, workKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("presence_drain_read_failed: %w", err)
	}

	// Work key is consumed regardless of decode outcome.
	if err := store.client.Del(context, workKey).Err(); err != nil {
		return nil, fmt.Errorf("presence_drain_cleanup_failed: %w", err)
	}

	refs := make([]QueuedRef, 0, len(entries))
	for _, entry := range entries {
		var ref QueuedRef
		if err := json.Unmarshal([]byte(entry), &ref); err != nil {
			// A corrupt entry is dropped; the message still exists in the
			// durable log and remains reachable via the unread endpoint.
			continue
		}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}

/*
QueueLength reports the number of references waiting in a user's offline queue.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Queue length
  - error: Cache read failures
*/
func (store *Store) QueueLength(context context.Context, userID string) (int64, error) {
	length, err := store.client.LLen(context, offlineKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("presence_queue_length_failed: %w", err)
	}
	return length, nil
}

// # Keys

func onlineKey(userID string) string {
	return constants.RedisPrefixOnline + userID
}

func offlineKey(userID string) string {
	return constants.RedisPrefixOffline + userID
}

// isNoSuchKey matches the Redis error returned by RENAME on a missing source.
func isNoSuchKey(err error) bool {
	return err != nil && err.Error() == "ERR no such key"
}
