// Package pricecache provides the TTL cache all pricing resolution goes
// through. It is the only shared mutable state in the service: concurrent
// fetches for the same key are collapsed to one, and failures are held
// briefly as negative entries to rate-limit retries against slow sources.
// Supports both in-memory and Redis backends for multi-instance deployments.
package pricecache

import (
	"context"
	"time"

	"pricecompare/internal/core"
)

// Entry is one cached resolution outcome: either a rate or a typed error.
// Replaced whole on every write, never mutated in place.
type Entry struct {
	Rate      *core.RateResult   `json:"rate,omitempty"`
	Err       *core.PricingError `json:"error,omitempty"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Negative reports whether the entry records a failure.
func (e *Entry) Negative() bool {
	return e.Err != nil
}

// Store defines the interface for cache entry storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves an entry by key.
	// Returns nil, nil if no entry exists.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores an entry under key with the given TTL.
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry whose key starts with prefix and returns
	// the number removed.
	Clear(ctx context.Context, prefix string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
