// Package cache defines the time-boxed cache the repositories use for
// read-through caching. The cache is a pure optimization layer: the
// ledger and invoice repositories must stay correct with caching
// disabled entirely.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Set stores value under key for at most ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value and true, or false if the key is absent or expired
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// InvalidatePattern removes every key containing the given substring
	InvalidatePattern(ctx context.Context, substring string) error
}
