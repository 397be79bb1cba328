package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so that a retried
// create request is not settled twice.
type IdempotencyStore interface {
	// Claim records key with a TTL.
	// Returns true if the key was newly claimed, false if it is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Seen reports whether key is currently held
	Seen(ctx context.Context, key string) (bool, error)

	// Release forgets key so the request may be retried, e.g. after it failed
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
