// Package cache provides the response cache store used by the model
// orchestrator: a byte-oriented get/set contract with write-time TTL,
// backed by memory or Redis.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned when an operation is attempted on a closed store.
var ErrStoreClosed = errors.New("cache store is closed")

// Store is a TTL key-value store. Get returns (nil, nil) on a miss or an
// expired entry; expiry is the store's responsibility, not the caller's.
// Entries are never explicitly invalidated; TTL expiry is the only removal
// path.
type Store interface {
	// Get retrieves the value for key, or nil if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL, applied at write time.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases store resources.
	Close() error
}
