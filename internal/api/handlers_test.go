// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/locshare/locshare/internal/auth"
	"github.com/locshare/locshare/internal/config"
	"github.com/locshare/locshare/internal/geocode"
	"github.com/locshare/locshare/internal/models"
	"github.com/locshare/locshare/internal/share"
	"github.com/locshare/locshare/internal/upstream"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// mockClient scripts Dawarich responses and counts calls.
type mockClient struct {
	point       *upstream.Point
	pointErr    error
	family      []upstream.FamilyLocation
	familyErr   error
	pointCalls  int
	familyCalls int
}

func (m *mockClient) LatestPoint(_ context.Context) (*upstream.Point, error) {
	m.pointCalls++
	return m.point, m.pointErr
}

func (m *mockClient) FamilyLocations(_ context.Context) ([]upstream.FamilyLocation, error) {
	m.familyCalls++
	return m.family, m.familyErr
}

func testConfig() *config.Config {
	return &config.Config{
		Dawarich: config.DawarichConfig{
			URL:    "http://dawarich.internal:3000",
			APIKey: "dawarich-key",
		},
		Share: config.ShareConfig{
			DefaultDuration: time.Hour,
			MaxDuration:     30 * 24 * time.Hour,
			DefaultName:     "User",
		},
		Cache: config.CacheConfig{
			LocationTTL:           10 * time.Second,
			LocationSweepInterval: time.Minute,
			AddressCapacity:       200,
		},
		Security: config.SecurityConfig{
			JWTSecret:          testSecret,
			CORSOrigins:        []string{"*"},
			ShareRateLimit:     10,
			ShareRateWindow:    15 * time.Minute,
			LocationRateLimit:  120,
			LocationRateWindow: time.Minute,
			StatusRateLimit:    1000,
			StatusRateWindow:   time.Minute,
		},
	}
}

// newTestHandler builds the full router backed by a mock Dawarich client.
func newTestHandler(t *testing.T, client upstream.Client, cfg *config.Config) http.Handler {
	t.Helper()

	tokens, err := auth.NewTokenManager(cfg)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	svc := share.NewService(tokens, client, geocode.NewResolver(nil, cfg.Cache.AddressCapacity), &cfg.Cache)
	t.Cleanup(svc.Stop)

	return NewRouter(NewHandler(svc, cfg, "test"), cfg).Setup()
}

func doRequest(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestShare_IssuesToken(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{}, testConfig())

	before := time.Now()
	rec := doRequest(handler, http.MethodPost, "/api/share", `{"duration": 3600, "name": "Papa"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[models.ShareResponse](t, rec)
	if resp.Token == "" {
		t.Error("token is empty")
	}

	// expires_at is epoch milliseconds, roughly one hour out
	wantMin := before.Add(time.Hour).UnixMilli() - 1000
	wantMax := time.Now().Add(time.Hour).UnixMilli() + 1000
	if resp.ExpiresAt < wantMin || resp.ExpiresAt > wantMax {
		t.Errorf("expires_at = %d, want within [%d, %d]", resp.ExpiresAt, wantMin, wantMax)
	}
}

func TestShare_EmptyBodyUsesDefaults(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{}, testConfig())

	rec := doRequest(handler, http.MethodPost, "/api/share", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp := decodeBody[models.ShareResponse](t, rec); resp.Token == "" {
		t.Error("token is empty")
	}
}

func TestShare_InvalidBody(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{}, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"duration": `},
		{"negative duration", `{"duration": -5}`},
		{"bad style url", `{"styleUrl": "not a url"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodPost, "/api/share", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSharedLocation_FullFlow(t *testing.T) {
	t.Parallel()

	client := &mockClient{family: []upstream.FamilyLocation{
		{Email: "alice@example.com", Name: "Alice Upstream", Latitude: 52.52, Longitude: 13.405, Timestamp: 1700000200},
	}}
	handler := newTestHandler(t, client, testConfig())

	rec := doRequest(handler, http.MethodPost, "/api/share", `{"email": "alice@example.com", "name": "Mama", "styleUrl": "https://tiles.example.com/style.json"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("share status = %d, body = %s", rec.Code, rec.Body.String())
	}
	token := decodeBody[models.ShareResponse](t, rec).Token

	rec = doRequest(handler, http.MethodGet, "/api/shared/location?token="+token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("location status = %d, body = %s", rec.Code, rec.Body.String())
	}

	record := decodeBody[models.LocationRecord](t, rec)
	if record.Email != "alice@example.com" {
		t.Errorf("email = %q", record.Email)
	}
	if record.Name != "Mama" {
		t.Errorf("name = %q, the issued name must override the upstream one", record.Name)
	}
	if record.Latitude != 52.52 || record.Longitude != 13.405 {
		t.Errorf("coordinates = %v,%v", record.Latitude, record.Longitude)
	}
	if record.StyleURL != "https://tiles.example.com/style.json" {
		t.Errorf("styleUrl = %q", record.StyleURL)
	}
	if record.ExpiresAt == 0 {
		t.Error("expires_at missing from location record")
	}
}

func TestSharedLocation_MissingToken(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	handler := newTestHandler(t, client, testConfig())

	rec := doRequest(handler, http.MethodGet, "/api/shared/location", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if client.pointCalls+client.familyCalls != 0 {
		t.Error("missing token must not trigger upstream requests")
	}
}

func TestSharedLocation_InvalidToken(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{}, testConfig())

	rec := doRequest(handler, http.MethodGet, "/api/shared/location?token=garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSharedLocation_ExpiredToken(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{}, testConfig())

	claims := &auth.ShareClaims{
		Email: auth.OwnerEmail,
		Name:  "User",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec := doRequest(handler, http.MethodGet, "/api/shared/location?token="+token, "")
	if rec.Code != http.StatusGone {
		t.Errorf("status = %d, want 410 for an expired link", rec.Code)
	}
}

func TestSharedLocation_NotFound(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{point: nil}, testConfig())

	rec := doRequest(handler, http.MethodPost, "/api/share", "")
	token := decodeBody[models.ShareResponse](t, rec).Token

	rec = doRequest(handler, http.MethodGet, "/api/shared/location?token="+token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
	errResp := decodeBody[models.ErrorResponse](t, rec)
	if errResp.Error != "Location not found or outdated" {
		t.Errorf("error = %q", errResp.Error)
	}
}

func TestSharedLocation_CachedWithinTTL(t *testing.T) {
	t.Parallel()

	client := &mockClient{point: &upstream.Point{Latitude: 52.52, Longitude: 13.405, Timestamp: 1700000000}}
	handler := newTestHandler(t, client, testConfig())

	rec := doRequest(handler, http.MethodPost, "/api/share", "")
	token := decodeBody[models.ShareResponse](t, rec).Token

	first := doRequest(handler, http.MethodGet, "/api/shared/location?token="+token, "")
	second := doRequest(handler, http.MethodGet, "/api/shared/location?token="+token, "")

	if client.pointCalls != 1 {
		t.Errorf("upstream calls = %d, want 1 for two polls within the cache TTL", client.pointCalls)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached responses differ:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	record := decodeBody[models.LocationRecord](t, first)
	if record.Email != auth.OwnerEmail {
		t.Errorf("email = %q, want %q for an owner link", record.Email, auth.OwnerEmail)
	}
}

func TestShare_HugeDurationClamped(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	handler := newTestHandler(t, &mockClient{}, cfg)

	// Large enough that duration * time.Second would overflow int64
	rec := doRequest(handler, http.MethodPost, "/api/share", `{"duration": 9000000000000000000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[models.ShareResponse](t, rec)
	wantMax := time.Now().Add(cfg.Share.MaxDuration).UnixMilli() + 1000
	wantMin := time.Now().Add(cfg.Share.MaxDuration - time.Minute).UnixMilli()
	if resp.ExpiresAt < wantMin || resp.ExpiresAt > wantMax {
		t.Errorf("expires_at = %d, want clamped to the maximum duration [%d, %d]", resp.ExpiresAt, wantMin, wantMax)
	}
}

func TestUnconfigured(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Dawarich = config.DawarichConfig{}

	client := &mockClient{}
	handler := newTestHandler(t, client, cfg)

	for _, target := range []struct {
		method string
		url    string
	}{
		{http.MethodPost, "/api/share"},
		{http.MethodGet, "/api/shared/location?token=whatever"},
	} {
		rec := doRequest(handler, target.method, target.url, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want 503", target.method, target.url, rec.Code)
		}
	}
	if client.pointCalls+client.familyCalls != 0 {
		t.Error("unconfigured service must not call upstream")
	}

	// Status still answers 200 and reports the unconfigured state
	rec := doRequest(handler, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", rec.Code)
	}
	status := decodeBody[models.StatusResponse](t, rec)
	if status.Configured {
		t.Error("configured = true, want false")
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{}, testConfig())

	rec := doRequest(handler, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	status := decodeBody[models.StatusResponse](t, rec)
	if status.Status != "ok" || !status.Configured || status.Version != "test" {
		t.Errorf("status = %+v", status)
	}
}

func TestShareRateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security.ShareRateLimit = 2
	cfg.Security.ShareRateWindow = time.Minute

	handler := newTestHandler(t, &mockClient{}, cfg)

	for i := 0; i < 2; i++ {
		if rec := doRequest(handler, http.MethodPost, "/api/share", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := doRequest(handler, http.MethodPost, "/api/share", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 once the budget is spent", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security.ShareRateLimit = 1
	cfg.Security.ShareRateWindow = time.Minute
	cfg.Security.RateLimitDisabled = true

	handler := newTestHandler(t, &mockClient{}, cfg)

	for i := 0; i < 5; i++ {
		if rec := doRequest(handler, http.MethodPost, "/api/share", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 with rate limiting disabled", i+1, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &mockClient{}, testConfig())

	// Drive one instrumented request so the counters exist
	doRequest(handler, http.MethodGet, "/api/status", "")

	rec := doRequest(handler, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("metrics output missing api_requests_total")
	}
}
