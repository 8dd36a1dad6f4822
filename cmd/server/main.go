// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

// Package main is the entry point for the Locshare server.
//
// Locshare mints signed, time-limited share links for live locations
// tracked in a Dawarich instance, and resolves those links for untrusted
// viewers. A link holder sees exactly one subject's current position,
// optionally reverse-geocoded through a Photon instance, and nothing else.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (DAWARICH_API_URL, DAWARICH_API_KEY,
//     JWT_SECRET, PHOTON_URL, ...)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// JWT_SECRET is required and must be at least 32 characters. The server
// starts without Dawarich credentials but answers 503 on the share
// endpoints until DAWARICH_API_URL and DAWARICH_API_KEY are set.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests for up to 10 seconds,
// then stops the cache sweepers.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/locshare/locshare/internal/api"
	"github.com/locshare/locshare/internal/auth"
	"github.com/locshare/locshare/internal/config"
	"github.com/locshare/locshare/internal/geocode"
	"github.com/locshare/locshare/internal/logging"
	"github.com/locshare/locshare/internal/share"
	"github.com/locshare/locshare/internal/upstream"
)

// version is overridden at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Locshare")

	if cfg.Configured() {
		logging.Info().
			Str("dawarich_url", cfg.Dawarich.URL).
			Bool("geocoding", cfg.GeocodingEnabled()).
			Msg("Configuration loaded")
	} else {
		logging.Warn().Msg("Dawarich not configured; share endpoints answer 503 until DAWARICH_API_URL and DAWARICH_API_KEY are set")
	}

	tokens, err := auth.NewTokenManager(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	// Upstream client with circuit breaker, only when Dawarich is configured
	var client upstream.Client
	if cfg.Configured() {
		client = upstream.NewCircuitBreakerClient(&cfg.Dawarich)
	}

	// Reverse geocoding degrades to null addresses when Photon is not set
	var geocoder geocode.ReverseGeocoder
	if cfg.GeocodingEnabled() {
		geocoder = geocode.NewPhotonClient(&cfg.Photon)
		logging.Info().Str("photon_url", cfg.Photon.URL).Msg("Reverse geocoding enabled")
	}
	resolver := geocode.NewResolver(geocoder, cfg.Cache.AddressCapacity)

	service := share.NewService(tokens, client, resolver, &cfg.Cache)
	defer service.Stop()

	handler := api.NewHandler(service, cfg, version)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Application stopped gracefully")
}
