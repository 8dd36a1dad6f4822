// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package api provides the HTTP surface: share-token issuance, shared
// location resolution and the status probe.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/locshare/locshare/internal/config"
	"github.com/locshare/locshare/internal/logging"
	"github.com/locshare/locshare/internal/models"
	"github.com/locshare/locshare/internal/share"
	"github.com/locshare/locshare/internal/validation"
)

// maxRequestBodySize bounds share request bodies.
const maxRequestBodySize = 64 * 1024 // 64KB

// Handler serves the API endpoints.
type Handler struct {
	service *share.Service
	cfg     *config.Config
	version string
}

// NewHandler creates the API handler.
func NewHandler(service *share.Service, cfg *config.Config, version string) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		version: version,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes a JSON error body with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// Share handles POST /api/share.
//
// The body is optional; an empty body issues an owner token with the
// default duration. Duration is in seconds. The response carries the
// signed token and its expiry in epoch milliseconds.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	var req models.ShareRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	// Clamp before converting to time.Duration; the multiplication by
	// time.Second would overflow int64 for absurd second counts.
	maxSeconds := int64(h.cfg.Share.MaxDuration / time.Second)
	if req.Duration > maxSeconds {
		req.Duration = maxSeconds
	}
	duration := time.Duration(req.Duration) * time.Second

	token, expiresAt, err := h.service.Issue(duration, req.Email, req.Name, req.StyleURL)
	if err != nil {
		if errors.Is(err, share.ErrNotConfigured) {
			respondError(w, http.StatusServiceUnavailable, "Dawarich API not configured")
			return
		}
		logging.Error().Err(err).Msg("Failed to issue share token")
		respondError(w, http.StatusInternalServerError, "Failed to create share link")
		return
	}

	respondJSON(w, http.StatusOK, models.ShareResponse{
		Token:     token,
		ExpiresAt: expiresAt.UnixMilli(),
	})
}

// SharedLocation handles GET /api/shared/location.
//
// Status codes are deliberately distinct: 401 for missing or invalid
// tokens, 410 for expired ones, 404 when the subject has no recent
// location, 503 when the upstream is unconfigured.
func (h *Handler) SharedLocation(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Missing token")
		return
	}

	record, err := h.service.Resolve(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrUnauthorized):
			respondError(w, http.StatusUnauthorized, "Invalid token")
		case errors.Is(err, share.ErrExpired):
			respondError(w, http.StatusGone, "Share link has expired")
		case errors.Is(err, share.ErrNotFound):
			respondError(w, http.StatusNotFound, "Location not found or outdated")
		case errors.Is(err, share.ErrNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "Dawarich API not configured")
		default:
			logging.Error().Err(err).Msg("Failed to resolve shared location")
			respondError(w, http.StatusInternalServerError, "Failed to fetch location")
		}
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// Status handles GET /api/status.
//
// Always answers 200, even when the upstream is unconfigured, so the
// dashboard can distinguish "service down" from "service up but not yet
// configured".
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.StatusResponse{
		Status:     "ok",
		Configured: h.cfg.Configured(),
		Version:    h.version,
	})
}
