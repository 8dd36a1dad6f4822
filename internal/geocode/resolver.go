// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

package geocode

import (
	"context"
	"fmt"

	"github.com/locshare/locshare/internal/cache"
	"github.com/locshare/locshare/internal/logging"
	"github.com/locshare/locshare/internal/metrics"
)

// unknownLocation marks a coordinate the provider has no data for. It is
// cached so repeated lookups of an unresolvable spot do not hammer the
// provider; transient provider errors are NOT cached and will retry.
const unknownLocation = "Unknown Location"

// Resolver resolves coordinates to addresses through an LRU cache.
//
// Cache keys round coordinates to 4 decimal places (~11m), so successive
// fixes from a stationary or slow-moving subject collapse into one
// provider lookup. All failures degrade to a nil address; a share-link
// viewer still sees the coordinates.
type Resolver struct {
	client   ReverseGeocoder
	cache    *cache.LRUCache
	disabled bool
}

// NewResolver creates an address resolver. A nil client disables
// geocoding entirely; every lookup then returns nil.
func NewResolver(client ReverseGeocoder, capacity int) *Resolver {
	return &Resolver{
		client:   client,
		cache:    cache.NewLRU(capacity, 0),
		disabled: client == nil,
	}
}

// coordinateKey builds the cache key from rounded coordinates.
func coordinateKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// Resolve returns the address for a coordinate, or nil when geocoding is
// disabled, the coordinate is unresolvable, or the provider fails.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) *string {
	if r.disabled {
		return nil
	}

	key := coordinateKey(lat, lon)

	if cached, found := r.cache.Get(key); found {
		metrics.RecordCacheHit("address")
		if cached == unknownLocation {
			return nil
		}
		return &cached
	}
	metrics.RecordCacheMiss("address")

	props, err := r.client.Reverse(ctx, lat, lon)
	if err != nil {
		// Not cached: the provider may recover by the next poll
		logging.Debug().Err(err).Str("key", key).Msg("Reverse geocode failed")
		return nil
	}

	if props == nil {
		r.cache.Add(key, unknownLocation)
		return nil
	}

	address := FormatAddress(props)
	if address == "" {
		r.cache.Add(key, unknownLocation)
		return nil
	}

	r.cache.Add(key, address)
	metrics.CacheSize.WithLabelValues("address").Set(float64(r.cache.Len()))
	return &address
}

// CacheStats exposes hit/miss counters for diagnostics.
func (r *Resolver) CacheStats() (hits, misses int64, size int) {
	return r.cache.Stats()
}
