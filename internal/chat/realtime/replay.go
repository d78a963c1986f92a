// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime

import (
	"context"
	"log/slog"

	"github.com/pulsechat/pulse/internal/chat/presence"
)

/*
ReplayOffline drains the user's offline queue and pushes the backlog onto the
freshly connected socket as a single messages.offline frame.

Description: The drain is claim-based (the queue is atomically renamed before
reading), so two sockets connecting at once cannot replay the same backlog
twice. References are resolved against the durable log one batch per kind,
then stitched back into the original queue order. Direct messages are marked
delivered only after the frame was accepted by the socket's buffer.

References whose message has vanished from the log (deleted, or a queue entry
that outlived its row) are skipped silently.

Parameters:
  - ctx: context.Context (from the connection's lifetime)
  - client: *Client (the socket that just registered)
*/
func (router *Router) ReplayOffline(ctx context.Context, client *Client) {
	refs, err := router.presence.Drain(ctx, client.UserID)
	if err != nil {
		// The claim failed, nothing was consumed: the queue survives for the
		// next connect.
		router.logger.Error("offline_drain_failed",
			slog.String("user_id", client.UserID),
			slog.Any("error", err),
		)
		return
	}
	if len(refs) == 0 {
		return
	}

	// 1. Split references by kind, remembering nothing about order here: the
	// refs slice itself stays the ordering authority.
	var directIDs, groupIDs []string
	for _, ref := range refs {
		switch ref.Kind {
		case presence.KindGroup:
			groupIDs = append(groupIDs, ref.MessageID)
		default:
			directIDs = append(directIDs, ref.MessageID)
		}
	}

	// 2. Resolve each kind with one bulk lookup, pre-marshaling every hit
	// into its live-frame form.
	entries := make([][]byte, 0, len(refs))
	directByID := make(map[string][]byte, len(directIDs))
	groupByID := make(map[string][]byte, len(groupIDs))

	if len(directIDs) > 0 {
		messages, err := router.messages.FindByIDs(ctx, directIDs)
		if err != nil {
			router.logger.Error("offline_lookup_failed",
				slog.String("user_id", client.UserID),
				slog.String("kind", presence.KindDirect),
				slog.Any("error", err),
			)
		}
		for _, msg := range messages {
			directByID[msg.ID] = newMessageFrame(msg)
		}
	}
	if len(groupIDs) > 0 {
		messages, err := router.groups.FindMessagesByIDs(ctx, groupIDs)
		if err != nil {
			router.logger.Error("offline_lookup_failed",
				slog.String("user_id", client.UserID),
				slog.String("kind", presence.KindGroup),
				slog.Any("error", err),
			)
		}
		for _, msg := range messages {
			groupByID[msg.ID] = newGroupMessageFrame(msg)
		}
	}

	// 3. Stitch resolved frames back into queue order.
	var deliveredDirect []string
	for _, ref := range refs {
		switch ref.Kind {
		case presence.KindGroup:
			if frame, ok := groupByID[ref.MessageID]; ok {
				entries = append(entries, frame)
			}
		default:
			if frame, ok := directByID[ref.MessageID]; ok {
				entries = append(entries, frame)
				deliveredDirect = append(deliveredDirect, ref.MessageID)
			}
		}
	}
	if len(entries) == 0 {
		return
	}

	// 4. One frame for the whole backlog. A socket that cannot even absorb
	// its own replay is shut down as slow; the messages remain in the durable
	// log and the unread endpoint.
	if !router.deliverToClient(client, newOfflineFrame(entries)) {
		return
	}

	// 5. Delivery timestamps only after the frame was accepted.
	if len(deliveredDirect) > 0 {
		if err := router.messages.MarkDelivered(ctx, deliveredDirect); err != nil {
			router.logger.Warn("offline_mark_delivered_failed",
				slog.String("user_id", client.UserID),
				slog.Any("error", err),
			)
		}
	}

	if router.metrics != nil {
		router.metrics.ReplayBatches.Inc()
	}

	router.logger.Info("offline_replayed",
		slog.String("user_id", client.UserID),
		slog.Int("count", len(entries)),
	)
}
