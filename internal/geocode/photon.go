// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package geocode resolves coordinates to human-readable addresses using a
// Photon reverse-geocoding endpoint, with an LRU cache keyed by rounded
// coordinates so nearby fixes reuse the same lookup.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/locshare/locshare/internal/config"
	"github.com/locshare/locshare/internal/metrics"
)

// Properties are the address components Photon returns for a feature.
type Properties struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"housenumber"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Country     string `json:"country"`
}

// ReverseGeocoder looks up the address components for a coordinate.
// Implemented by PhotonClient for production and by mocks in tests.
type ReverseGeocoder interface {
	// Reverse returns the best-matching address properties for the
	// coordinate, or (nil, nil) when the provider knows nothing about it.
	Reverse(ctx context.Context, lat, lon float64) (*Properties, error)
}

// PhotonClient talks to a Photon /reverse endpoint.
type PhotonClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewPhotonClient creates a Photon client from the geocoding config.
func NewPhotonClient(cfg *config.PhotonConfig) *PhotonClient {
	return &PhotonClient{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Reverse performs a reverse geocoding lookup.
// The API key, when configured, is sent as the X-API-KEY header; public
// Photon instances work without one.
func (c *PhotonClient) Reverse(ctx context.Context, lat, lon float64) (*Properties, error) {
	reqURL := fmt.Sprintf("%s/reverse?lat=%f&lon=%f", c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.RecordUpstreamRequest("photon", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocode failed with status %d", resp.StatusCode)
	}

	var result struct {
		Features []struct {
			Properties Properties `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode reverse geocode response: %w", err)
	}

	if len(result.Features) == 0 {
		return nil, nil
	}

	return &result.Features[0].Properties, nil
}

// FormatAddress builds a display string from address components.
//
// Precedence: place name first, then street with house number (or a bare
// house number), then the locality for context. When none of those exist
// the locality stands alone, and the country is the last resort.
func FormatAddress(p *Properties) string {
	var parts []string

	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	if p.Street != "" {
		street := p.Street
		if p.HouseNumber != "" {
			street += " " + p.HouseNumber
		}
		parts = append(parts, street)
	} else if p.HouseNumber != "" {
		parts = append(parts, p.HouseNumber)
	}

	locality := p.City
	if locality == "" {
		locality = p.Town
	}
	if locality == "" {
		locality = p.Village
	}

	if len(parts) == 0 {
		if locality != "" {
			parts = append(parts, locality)
		} else if p.Country != "" {
			parts = append(parts, p.Country)
		}
	} else if locality != "" {
		parts = append(parts, locality)
	}

	return strings.Join(parts, ", ")
}
