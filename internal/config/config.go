// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package config loads and validates the Locshare service configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables (highest priority). See koanf.go for the
// loading pipeline and the environment variable mapping table.
package config

import "time"

// Config is the root configuration for the service.
type Config struct {
	Dawarich DawarichConfig `koanf:"dawarich"`
	Photon   PhotonConfig   `koanf:"photon"`
	Server   ServerConfig   `koanf:"server"`
	Share    ShareConfig    `koanf:"share"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DawarichConfig holds the upstream Dawarich API connection settings.
// When URL or APIKey is empty the service still starts but answers 503
// on the share endpoints until both are configured.
type DawarichConfig struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// PhotonConfig holds the reverse-geocoding provider settings.
// The API key is optional; public Photon instances do not require one.
type PhotonConfig struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// ShareConfig controls share-token issuance.
type ShareConfig struct {
	// DefaultDuration is used when the issue request omits duration.
	DefaultDuration time.Duration `koanf:"default_duration"`
	// MaxDuration caps requested durations. Longer requests are clamped,
	// not rejected.
	MaxDuration time.Duration `koanf:"max_duration"`
	// DefaultName is the display name used when the issue request omits one.
	DefaultName string `koanf:"default_name"`
}

// CacheConfig controls the in-memory caches.
type CacheConfig struct {
	// LocationTTL is how long a resolved location response stays fresh.
	LocationTTL time.Duration `koanf:"location_ttl"`
	// LocationSweepInterval is how often expired location entries are swept.
	LocationSweepInterval time.Duration `koanf:"location_sweep_interval"`
	// AddressCapacity bounds the reverse-geocoding LRU cache.
	AddressCapacity int `koanf:"address_capacity"`
}

// SecurityConfig holds token signing and admission control settings.
type SecurityConfig struct {
	// JWTSecret signs share tokens. Required, minimum 32 characters.
	JWTSecret   string   `koanf:"jwt_secret"`
	CORSOrigins []string `koanf:"cors_origins"`

	// Per-IP rate budgets. The share budget is deliberately strict:
	// issuing a link is a rare, human-initiated action.
	ShareRateLimit     int           `koanf:"share_rate_limit"`
	ShareRateWindow    time.Duration `koanf:"share_rate_window"`
	LocationRateLimit  int           `koanf:"location_rate_limit"`
	LocationRateWindow time.Duration `koanf:"location_rate_window"`
	StatusRateLimit    int           `koanf:"status_rate_limit"`
	StatusRateWindow   time.Duration `koanf:"status_rate_window"`
	RateLimitDisabled  bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Configured reports whether the upstream Dawarich connection is usable.
// Share endpoints answer 503 until this returns true.
func (c *Config) Configured() bool {
	return c.Dawarich.URL != "" && c.Dawarich.APIKey != ""
}

// GeocodingEnabled reports whether reverse geocoding is available.
// Address resolution degrades to null addresses when disabled.
func (c *Config) GeocodingEnabled() bool {
	return c.Photon.URL != ""
}
