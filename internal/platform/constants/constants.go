// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Realtime: Socket buffer sizes, heartbeat windows, and connection caps.
  - Storage Timing: Deadlines for Postgres and Redis operations.
  - Security: JWT issuer and cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "pulse-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Storage Timing

const (
	// LogQueryTimeout bounds a single durable-log (PostgreSQL) query.
	LogQueryTimeout = 5 * time.Second

	// CacheOpTimeout bounds a single cache (Redis) operation.
	CacheOpTimeout = 1 * time.Second
)

// # Realtime Defaults

const (
	// DefaultMaxConnectionsPerUser caps concurrent sockets per account.
	// Registering a socket beyond the cap evicts the user's oldest socket.
	DefaultMaxConnectionsPerUser = 5

	// DefaultHeartbeatTTL is the presence-key lifetime. It is refreshed by
	// every inbound frame; absence of traffic lets it expire naturally.
	DefaultHeartbeatTTL = 60 * time.Second

	// DefaultSocketIdleTimeout closes sockets with no inbound frames (not
	// even pings) for this long.
	DefaultSocketIdleTimeout = 90 * time.Second

	// DefaultSendBufferSize bounds the per-socket outbound channel. A full
	// buffer marks the client as too slow and the socket is closed.
	DefaultSendBufferSize = 256

	// DefaultOfflineQueueTTL is how long undelivered message references
	// survive in the cache before the durable log becomes the only copy.
	DefaultOfflineQueueTTL = 7 * 24 * time.Hour

	// TypingInterval is the minimum spacing between forwarded typing
	// indicators for a single (sender, target) pair. Excess events are
	// silently dropped.
	TypingInterval = 1 * time.Second
)

// # Realtime Close Codes

const (
	// CloseNormal is the standard close for client-initiated disconnects.
	CloseNormal = 1000

	// ClosePolicyViolation evicts the oldest socket when the per-user cap
	// is exceeded.
	ClosePolicyViolation = 1008

	// CloseOverloaded drops a slow client whose outbound buffer filled up.
	CloseOverloaded = 1013

	// CloseAuthExpired signals that the access token expired mid-session.
	// Clients must re-authenticate instead of auto-reconnecting.
	CloseAuthExpired = 4001
)

// # HTTP Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "pulse.chat"

	// RefreshTokenCookieName is the name of the cookie that stores the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath is the scoped path for the refresh token cookie.
	RefreshTokenCookiePath = "/api/v1/auth"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	// RedisPrefixOnline marks a user as reachable: user:online:<user_id> = "1".
	RedisPrefixOnline = "user:online:"

	// RedisPrefixOffline is the per-user offline queue list key.
	RedisPrefixOffline = "user:offline:"

	// RedisPrefixResetToken keys password-reset entries by SHA-256 of the token.
	RedisPrefixResetToken = "auth:reset_token:"
)
