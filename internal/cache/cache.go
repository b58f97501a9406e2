/* Copyright (c) 2025 CrashBytes
 * SPDX-License-Identifier: BSD-3-Clause */

// Package cache is the transient store shared by all source clients. Entries are
// opaque serialized payloads keyed by the exact query parameters that produced
// them; staleness is checked at read time, there is no eviction beyond TTL.
package cache

import (
    "sync"
    "time"
)

type entry struct {
    payload    []byte
    insertedAt time.Time
    ttl        time.Duration
}

type Cache struct {
    mu      sync.RWMutex
    entries map[string]entry
    now     func() time.Time
}

func New() *Cache {
    return &Cache{entries: map[string]entry{}, now: time.Now}
}

// Get returns the payload for key, or false when the key is absent or expired.
// An expired entry is never served; it is removed lazily on the next Set.
func (c *Cache) Get(key string) ([]byte, bool) {
    c.mu.RLock()
    e, ok := c.entries[key]
    c.mu.RUnlock()
    if !ok { return nil, false }
    if c.now().After(e.insertedAt.Add(e.ttl)) { return nil, false }
    return e.payload, true
}

// Set stores payload under key, unconditionally overwriting any existing entry.
// Concurrent writers to the same key are last-writer-wins; values are idempotent
// re-derivations of the same external truth, so no coordination is needed.
func (c *Cache) Set(key string, payload []byte, ttl time.Duration) {
    c.mu.Lock()
    c.entries[key] = entry{payload: payload, insertedAt: c.now(), ttl: ttl}
    c.mu.Unlock()
}

// Len reports live (unexpired) entries.
func (c *Cache) Len() int {
    c.mu.RLock()
    defer c.mu.RUnlock()
    n := 0
    now := c.now()
    for _, e := range c.entries {
        if !now.After(e.insertedAt.Add(e.ttl)) { n++ }
    }
    return n
}
