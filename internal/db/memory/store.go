// Package memory implements db.Store in process memory on top of freecache.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/coocood/freecache"

	"github.com/kailas-cloud/nbserve/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultSizeMB is the cache size when none is configured.
const DefaultSizeMB = 32

// Store is a bounded in-process key-value store. Least recently used entries
// are evicted when the segment they hash to is full.
type Store struct {
	cache *freecache.Cache
}

// NewStore allocates a store of sizeMB megabytes (freecache enforces a 512KiB minimum).
func NewStore(sizeMB int) *Store {
	if sizeMB <= 0 {
		sizeMB = DefaultSizeMB
	}
	return &Store{cache: freecache.NewCache(sizeMB * 1024 * 1024)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close drops every entry.
func (s *Store) Close() { s.cache.Clear() }

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get returns the value or db.ErrKeyNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return v, nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value that expires after ttl, rounded up to whole seconds.
// ttl <= 0 means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.cache.Set([]byte(key), value, ttlSeconds(ttl)); err != nil {
		return &db.Error{Op: db.OpSet, Err: fmt.Errorf("key %q: %w", key, err)}
	}
	return nil
}

// Del removes a key. Missing keys are not an error.
func (s *Store) Del(_ context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

// Len returns the number of live entries.
func (s *Store) Len() int64 { return s.cache.EntryCount() }

func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	secs := math.Ceil(ttl.Seconds())
	if secs > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(secs)
}
