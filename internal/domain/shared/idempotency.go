package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied idempotency keys and the
// resource each key produced.
type IdempotencyStore interface {
	// Claim associates key with value if the key is unused.
	// It returns claimed=true when the key was free; otherwise it returns the
	// value recorded by the first claimant.
	Claim(ctx context.Context, key, value string, ttl time.Duration) (claimed bool, existing string, err error)

	// Complete replaces the value of a claimed key and keeps its expiry.
	// A key that is gone (expired or released) is left alone.
	Complete(ctx context.Context, key, value string) error

	// Release forgets a key, e.g. after the operation it guarded failed
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key is remembered. Default: 24 hours
	TTL time.Duration
	// Enabled determines whether idempotency keys are honoured
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
