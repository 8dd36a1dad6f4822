// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package auth implements the signed share-token capability scheme.
//
// A share token is a self-contained grant: whoever holds the raw string may
// view the subject's live location until the token expires. Tokens are
// HMAC-SHA256 signed JWTs carrying the subject email (or the OwnerEmail
// sentinel), a display-name snapshot taken at issue time, and an optional
// map style URL.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/locshare/locshare/internal/config"
)

// OwnerEmail is the sentinel subject for tokens that share the account
// owner's own location rather than a family member's.
const OwnerEmail = "OWNER"

var (
	// ErrTokenExpired indicates a structurally valid, correctly signed token
	// whose lifetime has passed. Callers surface this distinctly so viewers
	// learn the link is stale rather than forged.
	ErrTokenExpired = errors.New("share token expired")

	// ErrTokenInvalid indicates a malformed, tampered or wrongly signed token.
	ErrTokenInvalid = errors.New("share token invalid")
)

// ShareClaims are the JWT claims carried by a share token.
//
// Name is a snapshot of the display name at issue time. It deliberately
// overrides whatever name the upstream reports at resolve time, so the
// link shows the name the issuer chose.
type ShareClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	StyleURL string `json:"styleUrl,omitempty"`
	jwt.RegisteredClaims
}

// IsOwner reports whether the token shares the owner's own location.
func (c *ShareClaims) IsOwner() bool {
	return c.Email == OwnerEmail
}

// TokenManager issues and validates share tokens using HMAC-SHA256.
type TokenManager struct {
	secret          []byte
	defaultDuration time.Duration
	maxDuration     time.Duration
	defaultName     string
}

// NewTokenManager creates a share-token manager from the service config.
// The signing secret must be non-empty; length is enforced by config
// validation at startup.
func NewTokenManager(cfg *config.Config) (*TokenManager, error) {
	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	return &TokenManager{
		secret:          []byte(cfg.Security.JWTSecret),
		defaultDuration: cfg.Share.DefaultDuration,
		maxDuration:     cfg.Share.MaxDuration,
		defaultName:     cfg.Share.DefaultName,
	}, nil
}

// Issue creates a signed share token.
//
// A non-positive duration falls back to the configured default; requests
// beyond the configured maximum are clamped, not rejected. An empty email
// produces an owner token; an empty name falls back to the configured
// default display name.
//
// Returns the signed token and its expiry time.
func (m *TokenManager) Issue(duration time.Duration, email, name, styleURL string) (string, time.Time, error) {
	if duration <= 0 {
		duration = m.defaultDuration
	}
	if duration > m.maxDuration {
		duration = m.maxDuration
	}
	if email == "" {
		email = OwnerEmail
	}
	if name == "" {
		name = m.defaultName
	}

	now := time.Now()
	expiresAt := now.Add(duration)

	claims := &ShareClaims{
		Email:    email,
		Name:     name,
		StyleURL: styleURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Validate verifies a share token's signature and lifetime.
//
// Expired-but-otherwise-valid tokens return ErrTokenExpired; everything
// else that fails verification returns ErrTokenInvalid. Only HMAC signing
// methods are accepted, which blocks algorithm confusion attacks.
func (m *TokenManager) Validate(tokenString string) (*ShareClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ShareClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %s", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*ShareClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
