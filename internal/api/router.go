// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/locshare/locshare/internal/config"
	"github.com/locshare/locshare/internal/metrics"
	"github.com/locshare/locshare/internal/middleware"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler *Handler
	cfg     *config.Config
}

// NewRouter creates the router.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{
		handler: handler,
		cfg:     cfg,
	}
}

// Setup configures all routes and middleware and returns the root handler.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		// Share endpoints answer 503 until Dawarich is configured. The
		// guard runs before rate limiting so a misconfigured deployment
		// never burns a viewer's rate budget on 503s.
		r.Group(func(r chi.Router) {
			r.Use(rt.requireConfigured)

			// Issuing a link is a rare, human-initiated action
			r.With(rt.rateLimit("share", rt.cfg.Security.ShareRateLimit, rt.cfg.Security.ShareRateWindow)).
				Post("/share", rt.handler.Share)

			// Viewers poll this every few seconds
			r.With(rt.rateLimit("shared_location", rt.cfg.Security.LocationRateLimit, rt.cfg.Security.LocationRateWindow)).
				Get("/shared/location", rt.handler.SharedLocation)
		})

		r.With(rt.rateLimit("status", rt.cfg.Security.StatusRateLimit, rt.cfg.Security.StatusRateWindow)).
			Get("/status", rt.handler.Status)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requireConfigured rejects requests with 503 until the Dawarich upstream
// is configured.
func (rt *Router) requireConfigured(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rt.cfg.Configured() {
			respondError(w, http.StatusServiceUnavailable, "Dawarich API not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit returns a per-IP rate limiter for the named endpoint, or a
// pass-through when rate limiting is disabled.
func (rt *Router) rateLimit(endpoint string, requests int, window time.Duration) func(http.Handler) http.Handler {
	if rt.cfg.Security.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(endpoint).Inc()
			respondError(w, http.StatusTooManyRequests, "Too many requests")
		}),
	)
}
