// Package cache provides the shared key/value cache used by the catalog
// engines, with Redis and in-process backends.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Store is a byte-oriented cache. A zero ttl means no expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// AddToIndex records key as a member of the named index set. The member
	// lapses with the entry it names, ttl from now; ttl <= 0 never lapses.
	AddToIndex(ctx context.Context, index, key string, ttl time.Duration) error
	// IndexMembers lists the live keys recorded under index.
	IndexMembers(ctx context.Context, index string) ([]string, error)
}

// Remember returns the cached value for key, or computes, stores and returns
// it. Cache failures are logged and never fail the call. Two concurrent
// misses on the same key both compute; the last write wins.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if raw, ok, err := s.Get(ctx, key); err != nil {
		log.Printf("cache: get %s: %v", key, err)
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		log.Printf("cache: discarding undecodable entry %s", key)
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: encode %s: %v", key, err)
		return value, nil
	}
	if err := s.Set(ctx, key, raw, ttl); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return value, nil
}
