// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/constants"
	"github.com/pulsechat/pulse/internal/platform/respond"
	"github.com/pulsechat/pulse/internal/platform/sec"
)

// # Gateway

// GatewayConfig tunes the websocket endpoint.
type GatewayConfig struct {
	// SendBufferSize is the per-socket outbound channel capacity.
	SendBufferSize int

	// IdleTimeout closes sockets with no inbound frames for this long.
	IdleTimeout time.Duration

	// Development disables origin checking entirely.
	Development bool

	// ExtraOrigins lists additional allowed origin patterns beyond the
	// first-party pulse.chat domains.
	ExtraOrigins []string
}

// Gateway owns the websocket endpoint: it authenticates the handshake,
// upgrades the connection, and runs the read loop and write pump for the
// lifetime of the socket.
//
// # Lifecycle
//
//  1. Verify the access token BEFORE upgrading — a bad token costs one cheap
//     401, never a socket.
//  2. Register the client (may evict the user's oldest socket).
//  3. Replay the offline backlog.
//  4. Pump frames both ways until the socket closes, the client idles out,
//     or the access token expires mid-session.
type Gateway struct {
	tokens   *sec.TokenService
	registry *Registry
	router   *Router
	cfg      GatewayConfig
	logger   *slog.Logger
}

// NewGateway constructs the websocket [Gateway].
func NewGateway(tokens *sec.TokenService, registry *Registry, router *Router, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = constants.DefaultSendBufferSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = constants.DefaultSocketIdleTimeout
	}
	return &Gateway{
		tokens:   tokens,
		registry: registry,
		router:   router,
		cfg:      cfg,
		logger:   logger,
	}
}

// ServeHTTP upgrades an authenticated request to a websocket session.
func (gateway *Gateway) ServeHTTP(writer http.ResponseWriter, request *http.Request) {

	// 1. Authenticate the handshake before spending an upgrade on it.
	// Browsers cannot set headers on websocket dials, so the token rides the
	// query string; the Authorization header is honored for non-browser clients.
	claims, err := gateway.authenticate(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// 2. Upgrade.
	conn, err := websocket.Accept(writer, request, gateway.acceptOptions())
	if err != nil {
		// Accept already wrote the HTTP error response.
		gateway.logger.Warn("websocket_accept_failed",
			slog.String("user_id", claims.UserID),
			slog.Any("error", err),
		)
		return
	}

	client := NewClient(claims.UserID, claims.Username, gateway.cfg.SendBufferSize)
	ctx := request.Context()

	gateway.registry.Register(ctx, client)
	gateway.logger.Info("socket_connected",
		slog.String("user_id", client.UserID),
		slog.String("username", client.Username),
		slog.String("socket_id", client.ID),
	)

	// 3. A session never outlives its access token. Clients receiving 4001
	// must refresh and reconnect rather than silently retry.
	if claims.ExpiresAt != nil {
		expiry := time.AfterFunc(time.Until(claims.ExpiresAt.Time), func() {
			client.Shutdown(constants.CloseAuthExpired, "access token expired")
		})
		defer expiry.Stop()
	}

	// 4. Write pump: the only goroutine that touches conn.Write.
	writeDone := make(chan struct{})
	go gateway.writePump(ctx, conn, client, writeDone)

	// 5. Catch-up before live traffic: the backlog frame is enqueued ahead of
	// anything the router fans out for this user from here on.
	gateway.router.ReplayOffline(ctx, client)

	// 6. Read loop (this goroutine).
	gateway.readLoop(ctx, conn, client)

	// 7. Teardown. Unregister flips presence off when this was the last
	// socket; the write pump owns the close handshake.
	client.Shutdown(constants.CloseNormal, "")

	cleanupCtx, cancel := context.WithTimeout(context.Background(), constants.CacheOpTimeout)
	gateway.registry.Unregister(cleanupCtx, client)
	cancel()

	<-writeDone
	gateway.logger.Info("socket_disconnected",
		slog.String("user_id", client.UserID),
		slog.String("socket_id", client.ID),
	)
}

// # Handshake

// authenticate extracts and verifies the access token from the upgrade request.
func (gateway *Gateway) authenticate(request *http.Request) (*sec.AuthClaims, error) {
	token := request.URL.Query().Get("token")
	if token == "" {
		header := request.Header.Get("Authorization")
		if rest, found := strings.CutPrefix(header, "Bearer "); found {
			token = rest
		}
	}
	if token == "" {
		return nil, apperr.AuthInvalid("Missing access token")
	}
	return gateway.tokens.VerifyToken(token)
}

// acceptOptions builds the origin policy for the upgrade.
func (gateway *Gateway) acceptOptions() *websocket.AcceptOptions {
	if gateway.cfg.Development {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	patterns := append([]string{"pulse.chat", "*.pulse.chat"}, gateway.cfg.ExtraOrigins...)
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

// # Pumps

// readLoop consumes inbound frames until the socket errors, the client idles
// out, or the session is shut down.
func (gateway *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	for {
		select {
		case <-client.Done():
			return
		default:
		}

		// Every Read carries the idle deadline: a client that sends nothing,
		// not even pings, is presumed gone.
		readCtx, cancel := context.WithTimeout(ctx, gateway.cfg.IdleTimeout)
		_, frame, err := conn.Read(readCtx)
		cancel()

		if err != nil {
			gateway.classifyReadError(client, err)
			return
		}

		gateway.router.HandleFrame(ctx, client, frame)
	}
}

// classifyReadError records why the read loop stopped.
func (gateway *Gateway) classifyReadError(client *Client, err error) {
	switch {
	case websocket.CloseStatus(err) != -1:
		// Peer closed; normal end of session.
	case errors.Is(err, context.DeadlineExceeded):
		client.Shutdown(constants.CloseNormal, "idle timeout")
		gateway.logger.Info("socket_idle_timeout",
			slog.String("user_id", client.UserID),
			slog.String("socket_id", client.ID),
		)
	case errors.Is(err, context.Canceled):
		// Server shutting down or request context torn down.
	default:
		gateway.logger.Warn("socket_read_failed",
			slog.String("user_id", client.UserID),
			slog.String("socket_id", client.ID),
			slog.Any("error", err),
		)
	}
}

// writePump drains the outbound buffer onto the wire and performs the close
// handshake once the client is shut down.
func (gateway *Gateway) writePump(ctx context.Context, conn *websocket.Conn, client *Client, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case frame := <-client.Send:
			if len(frame) == 0 {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, constants.DefaultWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				client.Shutdown(constants.CloseNormal, "write failed")
				_ = conn.CloseNow()
				return
			}

		case <-client.Done():
			// Flush whatever fan-out already accepted before the handshake:
			// frames buffered behind the shutdown signal were promised to
			// this socket.
			gateway.drainPending(ctx, conn, client)

			code, reason := client.CloseStatus()
			if code == 0 {
				code = constants.CloseNormal
			}
			_ = conn.Close(websocket.StatusCode(code), reason)
			return

		case <-ctx.Done():
			_ = conn.CloseNow()
			return
		}
	}
}

// drainPending writes the buffered frames remaining at shutdown, without
// blocking on an empty buffer. A write failure abandons the rest.
func (gateway *Gateway) drainPending(ctx context.Context, conn *websocket.Conn, client *Client) {
	for {
		select {
		case frame := <-client.Send:
			if len(frame) == 0 {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, constants.DefaultWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return
			}
		default:
			return
		}
	}
}
