package shared

import (
	"context"
	"time"
)

// IdempotencyStore records webhook event IDs that have already been handled,
// so redelivered events can be acknowledged without reprocessing.
type IdempotencyStore interface {
	// MarkProcessed records an event ID with a TTL. It returns true when the
	// ID was newly recorded and false when it was already present.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event ID has already been recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig controls webhook event deduplication.
type IdempotencyConfig struct {
	// TTL is how long a processed event ID is remembered. After it expires
	// the same event ID would be processed again.
	TTL time.Duration

	// Enabled turns deduplication on or off.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
