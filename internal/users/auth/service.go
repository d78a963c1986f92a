// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Identity and access management for the Pulse chat platform.

This file handles everything from user registration and secure password hashing
to session lifecycle management via JWT and rotated refresh tokens.

Architecture:

  - Service: Orchestrates business logic (Register, Login, Refresh, Reset).
  - Repository: Abstracted interfaces for Postgres (Users, Sessions) and Redis (Reset tokens).
  - Security: Leverages bcrypt hashing and HS256-signed JWTs.

The package ensures that identity data remains consistent and secure throughout
the platform's lifecycle.
*/

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsechat/pulse/internal/platform/apperr"
	"github.com/pulsechat/pulse/internal/platform/mailer"
	"github.com/pulsechat/pulse/internal/platform/sec"
	"github.com/pulsechat/pulse/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - username: The username of the account.
	//   - email: The email of the account (carried as the subject claim).
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, username, email, role string, timeToLive time.Duration) (string, error)
}

// TokenConfig carries the lifetimes and link origin the service needs.
// Values come from the environment via the config package.
type TokenConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	ClientBaseURL   string
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed carefully.
type Service struct {
	userRepository       UserRepository
	sessionRepository    SessionRepository
	resetTokenRepository ResetTokenRepository
	tokenProvider        TokenProvider
	mail                 mailer.Mailer
	tokens               TokenConfig
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo ResetTokenRepository,
	tokenProv TokenProvider,
	mail mailer.Mailer,
	tokens TokenConfig,
) *Service {
	return &Service{
		userRepository:       userRepo,
		sessionRepository:    sessionRepo,
		resetTokenRepository: resetRepo,
		tokenProvider:        tokenProv,
		mail:                 mail,
		tokens:               tokens,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Enrollment of a new member, handling identity normalization and
password hashing.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Canonicalize identity fields so "Alice" and "alice" are the same account.
	username := sec.NormalizeUsername(input.Username)
	email := sec.NormalizeEmail(input.Email)

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict err.
	_, err = service.userRepository.FindByUsername(context, username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords. Hashing runs through a bounded
	// worker pool so registration spikes cannot saturate every CPU core.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		Role:         sec.RoleUser,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login     string // Can be Username or Email
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity, performs constant-time password comparison,
and initializes a new session with rotated security tokens.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: AuthInvalid or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	var user *User
	var err error
	// Flexible login: look up by Email or Username
	login := sec.NormalizeEmail(input.Login)
	user, err = service.userRepository.FindByEmail(context, login)
	if err != nil {
		user, err = service.userRepository.FindByUsername(context, sec.NormalizeUsername(input.Login))
	}

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.AuthInvalid("Invalid login credentials")
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.AuthInvalid("Invalid login credentials")
	}

	return service.issueSession(context, user, input.UserAgent, input.IPAddress)
}

/*
Logout permanently revokes the user's active session.

Description: Ensures that a tracked refresh token can never be used again.
Logout is idempotent: an unknown or already-revoked token is still a success.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {

	// Hash the refresh token
	tokenHash := sec.HashToken(refreshToken)

	// Consume revokes the session in a single statement. If the session is
	// already gone or invalid, we consider logout successful (idempotent).
	if _, err := service.sessionRepository.Consume(context, tokenHash); err != nil {
		if apperr.Code(err) == apperr.CodeNotFound {
			return nil
		}
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// # Session Management

/*
RefreshSession implements the Refresh Token Rotation mechanism.

Description: Atomically consumes the existing refresh token (exactly one of N
concurrent attempts can win the race) and issues a fresh pair of rotated tokens.

Parameters:
  - context: context.Context
  - refreshToken: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *LoginSession: New session credentials
  - err: AuthInvalid or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {

	// Hash the incoming refresh token to look it up
	tokenHash := sec.HashToken(refreshToken)

	// Rotation: Consume revokes the old session and returns its owner in one
	// statement, so a replayed token can never mint a second session.
	userID, err := service.sessionRepository.Consume(context, tokenHash)
	if err != nil {
		return nil, apperr.AuthInvalid("Invalid or expired refresh token")
	}

	// Fetch the user associated with this session
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, apperr.AuthInvalid("User not found or suspended")
	}

	return service.issueSession(context, user, userAgent, ipAddress)
}

// issueSession generates a fresh access/refresh token pair and persists the
// tracking session. Shared by Login and RefreshSession.
func (service *Service) issueSession(context context.Context, user *User, userAgent, ipAddress string) (*LoginSession, error) {

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Username, user.Email, string(user.Role), service.tokens.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Create and persist the tracking session
	expiresAt := time.Now().Add(service.tokens.RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates a secure token, saves its hash to Redis, and emails the
reset link. Always succeeds from the caller's perspective when the email is
unknown, to prevent account enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Generation errors
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	// Look up user.
	// NOTE: We don't return NOT_FOUND if the email doesn't exist to prevent user enumeration.
	user, err := service.userRepository.FindByEmail(context, sec.NormalizeEmail(email))
	if err != nil {
		return nil
	}

	// Generate reset token
	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	// Save the HASH to Redis; the plaintext token only ever travels by email.
	if err := service.resetTokenRepository.Set(context, sec.HashToken(token), user.ID, service.tokens.ResetTokenTTL); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	// Best-effort email delivery. A relay outage must not fail the request;
	// the token still exists and a retry will mint a new one.
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", service.tokens.ClientBaseURL, token)
	_ = service.mail.SendPasswordReset(context, user.Email, resetLink)

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Consumes the token (single use), hashes the new password, updates
the DB, and revokes all active sessions for security cleanup.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: Validation or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// Consume the reset token: this both resolves the userID and guarantees
	// the token can never be used a second time.
	userID, err := service.resetTokenRepository.Consume(context, sec.HashToken(token))
	if err != nil {
		return apperr.AuthInvalid("Reset token is invalid or expired")
	}

	// Hash the new password securely
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	// Update the user's password in persistent storage
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Security Cleanup: Revoke EVERY active session for this user
	_ = service.sessionRepository.RevokeAll(context, userID)

	return nil
}

// # Directory

/*
LookupUser resolves a username into a public profile.

Description: Used by clients to find a peer before starting a conversation.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *PublicProfile: Directory-safe projection
  - err: apperr.NotFound or storage failures
*/
func (service *Service) LookupUser(context context.Context, username string) (*PublicProfile, error) {
	user, err := service.userRepository.FindByUsername(context, sec.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}

	profile := user.Public()
	return &profile, nil
}
