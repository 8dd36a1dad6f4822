// Locshare - Shareable live-location links for Dawarich
// Copyright 2026 Locshare Contributors
// SPDX-License-Identifier: MIT
// https://github.com/locshare/locshare

package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCache_AddGet(t *testing.T) {
	t.Parallel()

	c := NewLRU(10, 0)

	c.Add("key", "value")

	got, found := c.Get("key")
	if !found {
		t.Fatal("expected key to be found")
	}
	if got != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}
}

func TestLRUCache_CapacityEviction(t *testing.T) {
	t.Parallel()

	c := NewLRU(3, 0)

	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")
	c.Add("d", "4") // evicts "a" (least recently used)

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if _, found := c.Get("a"); found {
		t.Error("oldest entry should have been evicted")
	}
	if _, found := c.Get("d"); !found {
		t.Error("newest entry should be present")
	}
}

func TestLRUCache_GetRefreshesRecency(t *testing.T) {
	t.Parallel()

	c := NewLRU(3, 0)

	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	// Touch "a" so "b" becomes the least recently used
	c.Get("a")
	c.Add("d", "4")

	if _, found := c.Get("a"); !found {
		t.Error("recently read entry should survive eviction")
	}
	if _, found := c.Get("b"); found {
		t.Error("least recently used entry should have been evicted")
	}
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	t.Parallel()

	c := NewLRU(3, 0)

	c.Add("key", "old")
	c.Add("key", "new")

	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	got, _ := c.Get("key")
	if got != "new" {
		t.Errorf("Get() = %q, want %q", got, "new")
	}
}

func TestLRUCache_NoTTLNeverExpires(t *testing.T) {
	t.Parallel()

	c := NewLRU(10, 0)
	c.Add("key", "value")

	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("key"); !found {
		t.Error("entry without TTL should never expire")
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	c := NewLRU(10, 20*time.Millisecond)
	c.Add("key", "value")

	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get("key"); found {
		t.Error("entry should have expired")
	}
	if c.Contains("key") {
		t.Error("Contains should report expired entry as absent")
	}
}

func TestLRUCache_Remove(t *testing.T) {
	t.Parallel()

	c := NewLRU(10, 0)
	c.Add("key", "value")

	if !c.Remove("key") {
		t.Error("Remove should report true for existing key")
	}
	if c.Remove("key") {
		t.Error("Remove should report false for absent key")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLRUCache_Clear(t *testing.T) {
	t.Parallel()

	c := NewLRU(10, 0)
	for i := 0; i < 5; i++ {
		c.Add(fmt.Sprintf("key-%d", i), "value")
	}

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Clear", c.Len())
	}
	if _, found := c.Get("key-0"); found {
		t.Error("cleared entry should be gone")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	t.Parallel()

	c := NewLRU(10, 0)
	c.Add("key", "value")

	c.Get("key")    // hit
	c.Get("absent") // miss

	hits, misses, size := c.Stats()
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
	if size != 1 {
		t.Errorf("size = %d, want 1", size)
	}
}

func TestLRUCache_DefaultCapacity(t *testing.T) {
	t.Parallel()

	c := NewLRU(0, 0)

	for i := 0; i < 250; i++ {
		c.Add(fmt.Sprintf("key-%d", i), "value")
	}

	if c.Len() != 200 {
		t.Errorf("Len() = %d, want default capacity 200", c.Len())
	}
}
