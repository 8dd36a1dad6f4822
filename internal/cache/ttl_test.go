// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTTLCache_SetGet(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute, time.Minute)
	defer c.Stop()

	c.Set("key", "value")

	got, found := c.Get("key")
	if !found {
		t.Fatal("expected key to be found")
	}
	if got != "value" {
		t.Errorf("Get() = %v, want %q", got, "value")
	}
}

func TestTTLCache_MissingKey(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute, time.Minute)
	defer c.Stop()

	if _, found := c.Get("absent"); found {
		t.Error("expected miss for absent key")
	}

	stats := c.Stats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestTTLCache_ReadTimeExpiry(t *testing.T) {
	t.Parallel()

	// Sweep interval far in the future so only the read path can expire
	c := NewTTL(20*time.Millisecond, time.Hour)
	defer c.Stop()

	c.Set("key", "value")
	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get("key"); found {
		t.Error("expected expired entry to be treated as a miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after read-time expiry", c.Len())
	}
}

func TestTTLCache_BackgroundSweep(t *testing.T) {
	t.Parallel()

	c := NewTTL(20*time.Millisecond, 30*time.Millisecond)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after sweep", c.Len())
	}
}

func TestTTLCache_SetWithTTL(t *testing.T) {
	t.Parallel()

	c := NewTTL(10*time.Millisecond, time.Hour)
	defer c.Stop()

	c.SetWithTTL("long", "value", time.Minute)
	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("long"); !found {
		t.Error("entry with custom TTL should outlive the default TTL")
	}
}

func TestTTLCache_Overwrite(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute, time.Minute)
	defer c.Stop()

	c.Set("key", "old")
	c.Set("key", "new")

	got, _ := c.Get("key")
	if got != "new" {
		t.Errorf("Get() = %v, want %q", got, "new")
	}
}

func TestTTLCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute, time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Error("deleted key should be gone")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Clear", c.Len())
	}
}

func TestTTLCache_HitRate(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute, time.Minute)
	defer c.Stop()

	c.Set("key", "value")
	c.Get("key")    // hit
	c.Get("absent") // miss

	if rate := c.HitRate(); rate != 50.0 {
		t.Errorf("HitRate() = %.1f, want 50.0", rate)
	}
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute, time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", c.Len())
	}
}
