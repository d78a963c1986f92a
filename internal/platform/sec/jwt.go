// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [TokenProvider] interface defined in the auth
// domain.
package sec

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pulsechat/pulse/internal/platform/apperr"
)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the UserID, Username, and Role directly inside the JWT,
// the authentication middleware and the websocket handshake can reconstruct
// the active user context WITHOUT querying the database on every single
// request or frame. This provides massive read-scalability.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string `json:"uid"`
	Username string `json:"unm"`
	Role     string `json:"rol"`
}

// TokenService handles generation and verification of JWT tokens using HS256.
//
// The signing secret comes from the environment (JWT_SECRET, minimum 32
// bytes, enforced at config load).
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService with the given HMAC secret.
func NewTokenService(secret []byte, issuer string) *TokenService {
	return &TokenService{secret: secret, issuer: issuer}
}

// GenerateAccessToken creates a new signed JWT access token for a user.
//
// The subject claim carries the user's email so that downstream systems can
// identify the principal without an extra lookup.
func (service *TokenService) GenerateAccessToken(userID, username, email, role string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:   userID,
		Username: username,
		Role:     role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", apperr.Internal(err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a JWT string.
//
// # Error Mapping
//
// Expired tokens surface as AUTH_EXPIRED so clients know to refresh; every
// other failure (bad signature, malformed claims, wrong algorithm) is the
// generic AUTH_INVALID.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("sec: unexpected signing method")
		}
		return service.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.AuthExpired("Access token has expired")
		}
		return nil, apperr.AuthInvalid("Invalid access token")
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, apperr.AuthInvalid("Invalid access token claims")
	}

	return claims, nil
}
