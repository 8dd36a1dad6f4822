// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
// Failures here are fatal at startup: a service running with a weak or
// missing signing secret would mint forgeable share links.
func (c *Config) Validate() error {
	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateDawarich(); err != nil {
		return err
	}

	if err := c.validatePhoton(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateShare(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateSecurity validates the signing secret and rate budgets.
func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateJWTSecret validates the share-token signing secret.
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateRateLimits validates the per-IP rate budgets.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	limits := []struct {
		name   string
		limit  int
		window string
		ok     bool
	}{
		{"SHARE_RATE_LIMIT", c.Security.ShareRateLimit, "SHARE_RATE_WINDOW", c.Security.ShareRateWindow > 0},
		{"LOCATION_RATE_LIMIT", c.Security.LocationRateLimit, "LOCATION_RATE_WINDOW", c.Security.LocationRateWindow > 0},
		{"STATUS_RATE_LIMIT", c.Security.StatusRateLimit, "STATUS_RATE_WINDOW", c.Security.StatusRateWindow > 0},
	}
	for _, l := range limits {
		if l.limit <= 0 {
			return fmt.Errorf("%s must be positive (or set DISABLE_RATE_LIMIT=true)", l.name)
		}
		if !l.ok {
			return fmt.Errorf("%s must be a positive duration", l.window)
		}
	}
	return nil
}

// validateDawarich validates the Dawarich connection settings.
// An unset URL and key is allowed: the service starts unconfigured and
// answers 503 until both are provided.
func (c *Config) validateDawarich() error {
	if c.Dawarich.URL != "" {
		if err := validateHTTPURL(c.Dawarich.URL, "DAWARICH_API_URL"); err != nil {
			return fmt.Errorf("DAWARICH_API_URL is invalid: %w", err)
		}
	}
	if c.Dawarich.Timeout <= 0 {
		return fmt.Errorf("DAWARICH_TIMEOUT must be a positive duration")
	}
	return nil
}

// validatePhoton validates the Photon settings. URL is optional; when unset
// reverse geocoding is disabled and addresses resolve to null.
func (c *Config) validatePhoton() error {
	if c.Photon.URL != "" {
		if err := validateHTTPURL(c.Photon.URL, "PHOTON_URL"); err != nil {
			return fmt.Errorf("PHOTON_URL is invalid: %w", err)
		}
	}
	if c.Photon.Timeout <= 0 {
		return fmt.Errorf("PHOTON_TIMEOUT must be a positive duration")
	}
	return nil
}

// validateServer validates the HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be a positive duration")
	}
	return nil
}

// validateShare validates token issuance settings.
func (c *Config) validateShare() error {
	if c.Share.DefaultDuration <= 0 {
		return fmt.Errorf("SHARE_DEFAULT_DURATION must be a positive duration")
	}
	if c.Share.MaxDuration < c.Share.DefaultDuration {
		return fmt.Errorf("SHARE_MAX_DURATION must be at least SHARE_DEFAULT_DURATION")
	}
	return nil
}

// validateCache validates cache settings.
func (c *Config) validateCache() error {
	if c.Cache.LocationTTL <= 0 {
		return fmt.Errorf("LOCATION_CACHE_TTL must be a positive duration")
	}
	if c.Cache.LocationSweepInterval <= 0 {
		return fmt.Errorf("LOCATION_CACHE_SWEEP_INTERVAL must be a positive duration")
	}
	if c.Cache.AddressCapacity < 1 {
		return fmt.Errorf("ADDRESS_CACHE_SIZE must be at least 1")
	}
	return nil
}

// validateLogging validates the logging settings.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// validateHTTPURL validates that a URL is properly formatted for HTTP/HTTPS services.
// Validates: scheme (http/https), host present, no paths or query params.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	// Allow trailing slash but no other paths
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}

// placeholderPatterns are common values that indicate the user forgot to set
// a real secret.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns.
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
