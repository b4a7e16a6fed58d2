package cache

import (
	"context"
	"errors"

	"github.com/profithive/profithive-go/internal/models"
)

// ErrCacheMiss is returned by Get when no entry exists for a key.
var ErrCacheMiss = errors.New("cache: entry not found")

// Store persists prophet forecast results keyed by content hash. Entries are
// idempotent and content-addressed, so concurrent writers for the same key
// may race freely; last writer wins.
//
// The process orchestrator is the sole owner of the store. No other component
// reads or writes it.
type Store interface {
	// Get returns the entry for key, or ErrCacheMiss. Expiry is the caller's
	// concern: expired entries may still be returned by backends without
	// native TTL support.
	Get(ctx context.Context, key string) (*models.CacheEntry, error)

	// Put writes or replaces the entry under entry.Key.
	Put(ctx context.Context, entry *models.CacheEntry) error

	// Evict removes the entry for key. Missing keys are not an error.
	Evict(ctx context.Context, key string) error

	// Clear removes every forecast entry owned by this store.
	Clear(ctx context.Context) error
}
