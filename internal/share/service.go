// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package share implements the core service: issuing share tokens and
// resolving them to live locations for untrusted viewers.
//
// Resolution order matters. The token is verified before any cache or
// upstream work so that invalid and expired links are rejected without
// spending a Dawarich call, and resolved locations are cached per raw
// token string for a short TTL so a viewer polling every few seconds does
// not translate into one upstream request per poll.
package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/locshare/locshare/internal/auth"
	"github.com/locshare/locshare/internal/cache"
	"github.com/locshare/locshare/internal/config"
	"github.com/locshare/locshare/internal/geocode"
	"github.com/locshare/locshare/internal/logging"
	"github.com/locshare/locshare/internal/metrics"
	"github.com/locshare/locshare/internal/models"
	"github.com/locshare/locshare/internal/upstream"
)

var (
	// ErrNotConfigured indicates the Dawarich upstream is not configured.
	ErrNotConfigured = errors.New("dawarich upstream not configured")

	// ErrUnauthorized indicates a missing, malformed or wrongly signed token.
	ErrUnauthorized = errors.New("share token unauthorized")

	// ErrExpired indicates a well-formed token past its lifetime. Surfaced
	// separately from ErrUnauthorized so viewers learn the link is stale.
	ErrExpired = errors.New("share token expired")

	// ErrNotFound indicates the token is valid but no recent location
	// exists for its subject.
	ErrNotFound = errors.New("location not found or outdated")
)

// UpstreamError wraps a Dawarich failure so handlers can map it to a 500
// without conflating it with the sentinel outcomes above.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Service issues share tokens and resolves them to locations.
type Service struct {
	tokens     *auth.TokenManager
	client     upstream.Client
	geocoder   *geocode.Resolver
	locations  *cache.TTLCache
	configured bool
}

// NewService wires the share service from its collaborators. A nil client
// marks the service unconfigured; both Issue and Resolve then fail with
// ErrNotConfigured.
func NewService(tokens *auth.TokenManager, client upstream.Client, geocoder *geocode.Resolver, cfg *config.CacheConfig) *Service {
	return &Service{
		tokens:     tokens,
		client:     client,
		geocoder:   geocoder,
		locations:  cache.NewTTL(cfg.LocationTTL, cfg.LocationSweepInterval),
		configured: client != nil,
	}
}

// Issue creates a share token for the given subject.
//
// Duration is clamped to the configured maximum; an empty email issues an
// owner token. Returns the signed token and its expiry.
func (s *Service) Issue(duration time.Duration, email, name, styleURL string) (string, time.Time, error) {
	if !s.configured {
		return "", time.Time{}, ErrNotConfigured
	}

	token, expiresAt, err := s.tokens.Issue(duration, email, name, styleURL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue share token: %w", err)
	}

	subject := "member"
	if email == "" || email == auth.OwnerEmail {
		subject = "owner"
	}
	metrics.TokensIssued.WithLabelValues(subject).Inc()

	logging.Info().
		Str("subject", subject).
		Time("expires_at", expiresAt).
		Msg("Share token issued")

	return token, expiresAt, nil
}

// Resolve validates a share token and returns the subject's current
// location.
//
// Errors are one of the package sentinels (ErrNotConfigured,
// ErrUnauthorized, ErrExpired, ErrNotFound) or an *UpstreamError.
func (s *Service) Resolve(ctx context.Context, token string) (*models.LocationRecord, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	// Token verification comes first: an attacker probing with garbage
	// tokens must never trigger cache or upstream activity.
	claims, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			metrics.LocationResolutions.WithLabelValues("expired").Inc()
			return nil, ErrExpired
		}
		metrics.LocationResolutions.WithLabelValues("unauthorized").Inc()
		return nil, ErrUnauthorized
	}

	if cached, found := s.locations.Get(token); found {
		metrics.RecordCacheHit("location")
		metrics.LocationResolutions.WithLabelValues("ok").Inc()
		return cached.(*models.LocationRecord), nil
	}
	metrics.RecordCacheMiss("location")

	record, err := s.fetch(ctx, claims)
	if err != nil {
		return nil, err
	}

	record.Name = claims.Name
	record.StyleURL = claims.StyleURL
	if claims.ExpiresAt != nil {
		record.ExpiresAt = claims.ExpiresAt.Unix()
	}
	record.Address = s.geocoder.Resolve(ctx, record.Latitude, record.Longitude)

	s.locations.Set(token, record)
	metrics.CacheSize.WithLabelValues("location").Set(float64(s.locations.Len()))
	metrics.LocationResolutions.WithLabelValues("ok").Inc()

	return record, nil
}

// fetch pulls the subject's raw location from Dawarich.
func (s *Service) fetch(ctx context.Context, claims *auth.ShareClaims) (*models.LocationRecord, error) {
	if claims.IsOwner() {
		return s.fetchOwner(ctx)
	}
	return s.fetchMember(ctx, claims.Email)
}

// fetchOwner resolves the account owner's latest tracked point.
func (s *Service) fetchOwner(ctx context.Context) (*models.LocationRecord, error) {
	point, err := s.client.LatestPoint(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to fetch owner location")
		metrics.LocationResolutions.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{Err: err}
	}
	if point == nil {
		metrics.LocationResolutions.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}

	return &models.LocationRecord{
		Email:     auth.OwnerEmail,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Battery:   point.Battery,
		Timestamp: point.Timestamp,
	}, nil
}

// fetchMember resolves a family member's last known location by email.
func (s *Service) fetchMember(ctx context.Context, email string) (*models.LocationRecord, error) {
	members, err := s.client.FamilyLocations(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to fetch family locations")
		metrics.LocationResolutions.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{Err: err}
	}

	// The match is exact: the token grants access to precisely the subject
	// string it was signed for.
	for i := range members {
		if members[i].Email == email {
			m := &members[i]
			return &models.LocationRecord{
				Email:     m.Email,
				Latitude:  float64(m.Latitude),
				Longitude: float64(m.Longitude),
				Battery:   m.Battery,
				Timestamp: int64(m.Timestamp),
			}, nil
		}
	}

	metrics.LocationResolutions.WithLabelValues("not_found").Inc()
	return nil, ErrNotFound
}

// Configured reports whether the Dawarich upstream is wired.
func (s *Service) Configured() bool {
	return s.configured
}

// CacheStats exposes the location cache counters for diagnostics.
func (s *Service) CacheStats() cache.TTLStats {
	return s.locations.Stats()
}

// Stop terminates the location cache's background sweeper.
func (s *Service) Stop() {
	s.locations.Stop()
}
