// Package cache provides an injectable cache abstraction so callers never
// reach for package-level state. Production uses the TTL memory cache;
// tests use a deterministic clock or the no-op cache.
package cache

import (
	"sync"
	"time"
)

// Cache is the contract sync and lookup paths depend on.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Invalidate(key string)
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-process cache with a fixed per-entry TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     Clock
}

// NewMemory creates a memory cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return NewMemoryWithClock(ttl, time.Now)
}

// NewMemoryWithClock creates a memory cache with an injected clock.
func NewMemoryWithClock(ttl time.Duration, now Clock) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached value if present and not expired.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores a value with the cache's TTL.
func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

// Invalidate removes a key.
func (m *Memory) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// None is a cache that stores nothing.
type None struct{}

// Get always misses.
func (None) Get(string) (any, bool) { return nil, false }

// Set discards the value.
func (None) Set(string, any) {}

// Invalidate does nothing.
func (None) Invalidate(string) {}
