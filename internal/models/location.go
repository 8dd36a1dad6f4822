// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package models defines the wire types shared between the API handlers and
// the resolver.
package models

// LocationRecord is the payload returned to a share-link viewer.
//
// Timestamps are epoch seconds. ExpiresAt is the token expiry in epoch
// seconds and is omitted for tokens without an expiry claim. Address and
// Battery are null when unknown.
type LocationRecord struct {
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Battery   *float64 `json:"battery"`
	Timestamp int64    `json:"timestamp"`
	Address   *string  `json:"address"`
	StyleURL  string   `json:"styleUrl,omitempty"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
}

// ShareRequest is the body of POST /api/share.
// Duration is in seconds; zero means the server default.
type ShareRequest struct {
	Duration int64  `json:"duration" validate:"omitempty,min=1"`
	Email    string `json:"email" validate:"omitempty,max=254"`
	Name     string `json:"name" validate:"omitempty,max=100"`
	StyleURL string `json:"styleUrl" validate:"omitempty,url,max=2048"`
}

// ShareResponse is the body returned by POST /api/share.
// ExpiresAt is in epoch milliseconds, matching what the dashboard's
// countdown timer expects.
type ShareResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// StatusResponse is the body returned by GET /api/status.
type StatusResponse struct {
	Status     string `json:"status"`
	Configured bool   `json:"configured"`
	Version    string `json:"version"`
}

// ErrorResponse is the body returned on any error status.
type ErrorResponse struct {
	Error string `json:"error"`
}
