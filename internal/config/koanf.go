// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/locshare/config.yaml",
	"/etc/locshare/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Dawarich: DawarichConfig{
			URL:     "",
			APIKey:  "",
			Timeout: 10 * time.Second,
		},
		Photon: PhotonConfig{
			URL:     "",
			APIKey:  "",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Port:    3006,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		Share: ShareConfig{
			DefaultDuration: time.Hour,
			MaxDuration:     30 * 24 * time.Hour,
			DefaultName:     "User",
		},
		Cache: CacheConfig{
			LocationTTL:           10 * time.Second,
			LocationSweepInterval: 30 * time.Second,
			AddressCapacity:       200,
		},
		Security: SecurityConfig{
			JWTSecret:          "",
			CORSOrigins:        []string{"*"},
			ShareRateLimit:     10,
			ShareRateWindow:    15 * time.Minute,
			LocationRateLimit:  120,
			LocationRateWindow: time.Minute,
			StatusRateLimit:    1000,
			StatusRateWindow:   time.Minute,
			RateLimitDisabled:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// DAWARICH_API_URL -> dawarich.url
	// SHARE_RATE_LIMIT -> security.share_rate_limit
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields. Env vars come in as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DAWARICH_API_URL -> dawarich.url
//   - PHOTON_API_KEY -> photon.api_key
//   - JWT_SECRET -> security.jwt_secret
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Dawarich upstream
		"dawarich_api_url": "dawarich.url",
		"dawarich_api_key": "dawarich.api_key",
		"dawarich_timeout": "dawarich.timeout",

		// Photon reverse geocoding
		"photon_url":     "photon.url",
		"photon_api_key": "photon.api_key",
		"photon_timeout": "photon.timeout",

		// Server
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",

		// Share token issuance
		"share_default_duration": "share.default_duration",
		"share_max_duration":     "share.max_duration",
		"share_default_name":     "share.default_name",

		// Caches
		"location_cache_ttl":            "cache.location_ttl",
		"location_cache_sweep_interval": "cache.location_sweep_interval",
		"address_cache_size":            "cache.address_capacity",

		// Security
		"jwt_secret":           "security.jwt_secret",
		"cors_origins":         "security.cors_origins",
		"share_rate_limit":     "security.share_rate_limit",
		"share_rate_window":    "security.share_rate_window",
		"location_rate_limit":  "security.location_rate_limit",
		"location_rate_window": "security.location_rate_window",
		"status_rate_limit":    "security.status_rate_limit",
		"status_rate_window":   "security.status_rate_window",
		"disable_rate_limit":   "security.rate_limit_disabled",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them.
	// This prevents random environment variables from polluting config.
	return ""
}
