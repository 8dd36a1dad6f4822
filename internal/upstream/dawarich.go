// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package upstream implements the Dawarich API client used to fetch live
// locations for share-link viewers.
//
// Two endpoints are consumed: /api/v1/points for the account owner's latest
// recorded point and /api/v1/families/locations for family members. Dawarich
// deployments differ in field naming (latitude vs lat, timestamp vs tst) and
// in whether numbers arrive as JSON numbers or strings, so parsing is
// deliberately tolerant.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/locshare/locshare/internal/config"
	"github.com/locshare/locshare/internal/metrics"
)

// maxErrorBodySize limits the response body read for error reporting.
// Prevents unbounded memory allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Client defines the Dawarich operations the resolver needs.
// Implemented by DawarichClient for production and by mocks in tests.
type Client interface {
	// LatestPoint returns the owner's most recent tracked point, or
	// (nil, nil) when Dawarich has no recent data.
	LatestPoint(ctx context.Context) (*Point, error)

	// FamilyLocations returns the last known location of every family member.
	FamilyLocations(ctx context.Context) ([]FamilyLocation, error)
}

// Point is the owner's latest tracked point.
type Point struct {
	Latitude  float64
	Longitude float64
	Battery   *float64
	Timestamp int64
}

// FamilyLocation is one family member's last known location.
type FamilyLocation struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Latitude  flexFloat `json:"latitude"`
	Longitude flexFloat `json:"longitude"`
	Battery   *float64  `json:"battery"`
	Timestamp flexInt   `json:"timestamp"`
}

// DawarichClient talks to the Dawarich HTTP API.
//
// Thread Safety: safe for concurrent use; each request creates its own
// HTTP request.
type DawarichClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewDawarichClient creates a Dawarich API client from the upstream config.
func NewDawarichClient(cfg *config.DawarichConfig) *DawarichClient {
	return &DawarichClient{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// rawPoint tolerates both Dawarich point spellings: latitude/lat,
// longitude/lon, battery/batt, timestamp/tst.
type rawPoint struct {
	Latitude  *flexFloat `json:"latitude"`
	Lat       *flexFloat `json:"lat"`
	Longitude *flexFloat `json:"longitude"`
	Lon       *flexFloat `json:"lon"`
	Battery   *flexFloat `json:"battery"`
	Batt      *flexFloat `json:"batt"`
	Timestamp *flexInt   `json:"timestamp"`
	Tst       *flexInt   `json:"tst"`
}

// toPoint normalizes a raw point, preferring the long field names.
func (r *rawPoint) toPoint() *Point {
	p := &Point{}

	if r.Latitude != nil {
		p.Latitude = float64(*r.Latitude)
	} else if r.Lat != nil {
		p.Latitude = float64(*r.Lat)
	}

	if r.Longitude != nil {
		p.Longitude = float64(*r.Longitude)
	} else if r.Lon != nil {
		p.Longitude = float64(*r.Lon)
	}

	if r.Battery != nil {
		b := float64(*r.Battery)
		p.Battery = &b
	} else if r.Batt != nil {
		b := float64(*r.Batt)
		p.Battery = &b
	}

	if r.Timestamp != nil {
		p.Timestamp = int64(*r.Timestamp)
	} else if r.Tst != nil {
		p.Timestamp = int64(*r.Tst)
	}

	return p
}

// LatestPoint fetches the owner's most recent point.
//
// Dawarich pages points by date, so the query asks for a single descending
// result starting from yesterday (UTC). Responses arrive either as a bare
// array or wrapped in a points object depending on the Dawarich version.
func (c *DawarichClient) LatestPoint(ctx context.Context) (*Point, error) {
	yesterday := time.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02")

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("start_at", yesterday)
	params.Set("per_page", "1")
	params.Set("order", "desc")

	reqURL := fmt.Sprintf("%s/api/v1/points?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("points request failed: %w", err)
	}

	// Bare array form
	var asArray []rawPoint
	if err := json.Unmarshal(body, &asArray); err == nil {
		if len(asArray) == 0 {
			return nil, nil
		}
		return asArray[0].toPoint(), nil
	}

	// Wrapped form
	var asObject struct {
		Points []rawPoint `json:"points"`
	}
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil, fmt.Errorf("failed to decode points response: %w", err)
	}
	if len(asObject.Points) == 0 {
		return nil, nil
	}
	return asObject.Points[0].toPoint(), nil
}

// FamilyLocations fetches the last known location of every family member.
func (c *DawarichClient) FamilyLocations(ctx context.Context) ([]FamilyLocation, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s/api/v1/families/locations?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("family locations request failed: %w", err)
	}

	var resp struct {
		Locations []FamilyLocation `json:"locations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode family locations response: %w", err)
	}

	return resp.Locations, nil
}

// get performs an instrumented GET request and returns the response body.
func (c *DawarichClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	metrics.RecordUpstreamRequest("dawarich", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexInt decodes a JSON integer, float or numeric string.
type flexInt int64

func (i *flexInt) UnmarshalJSON(data []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = flexInt(f)
	return nil
}
