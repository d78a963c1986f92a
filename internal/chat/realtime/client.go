// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime

import (
	"sync"
	"time"

	"github.com/pulsechat/pulse/internal/platform/constants"
	"github.com/pulsechat/pulse/pkg/uuid"
)

// Client represents one registered websocket connection.
//
// The gateway owns the underlying network connection; everything else in the
// system talks to a Client only through its bounded Send channel and its
// shutdown signal. That boundary is what lets the router and replay worker be
// tested without sockets.
type Client struct {
	// ID uniquely identifies this socket (a user may hold several).
	ID string

	// UserID is the authenticated owner of the socket.
	UserID string

	// Username is carried for log readability.
	Username string

	// Send is the bounded outbound frame buffer. Producers must use
	// [Client.Enqueue], never write directly.
	Send chan []byte

	// ConnectedAt orders a user's sockets for oldest-first eviction.
	ConnectedAt time.Time

	done        chan struct{}
	closeOnce   sync.Once
	closeMu     sync.Mutex
	closeCode   int
	closeReason string
}

// NewClient constructs a registered-but-unwired [Client].
func NewClient(userID, username string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = constants.DefaultSendBufferSize
	}
	return &Client{
		ID:          uuid.New(),
		UserID:      userID,
		Username:    username,
		Send:        make(chan []byte, sendBuffer),
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Enqueue offers a frame to the outbound buffer without blocking.
//
// Returns false when the buffer is full or the client is already shut down;
// the caller decides whether a full buffer is fatal (it is, for the router:
// slow clients are disconnected rather than allowed to stall the hot path).
func (client *Client) Enqueue(frame []byte) bool {
	if len(frame) == 0 {
		return true
	}

	select {
	case <-client.done:
		return false
	default:
	}

	select {
	case client.Send <- frame:
		return true
	default:
		return false
	}
}

// Shutdown signals the write pump to close the connection with the given
// close code. Safe to call from any goroutine, any number of times; only the
// first call's code and reason win.
func (client *Client) Shutdown(code int, reason string) {
	client.closeOnce.Do(func() {
		client.closeMu.Lock()
		client.closeCode = code
		client.closeReason = reason
		client.closeMu.Unlock()
		close(client.done)
	})
}

// Done is closed when the client has been shut down.
func (client *Client) Done() <-chan struct{} {
	return client.done
}

// CloseStatus returns the close code and reason recorded by the winning
// [Client.Shutdown] call. Zero values before shutdown.
func (client *Client) CloseStatus() (int, string) {
	client.closeMu.Lock()
	defer client.closeMu.Unlock()
	return client.closeCode, client.closeReason
}
