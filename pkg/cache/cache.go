// Package cache stores derived results keyed by content hash.
//
// The expensive derivations in this module (layout solving, artifact
// rendering) are pure functions of the visible graph and their options,
// so their outputs are cached under keys built from hashing those
// inputs. Backends cover one-shot CLI runs (FileCache), long-running
// servers (RedisCache) and tests (NullCache).
package cache

import (
	"context"
	"time"
)

// Default TTLs per derived-result stage. Entries are content-addressed,
// so expiry bounds storage growth rather than guarding freshness.
const (
	// TTLLayout is the default lifetime for computed node positions.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact is the default lifetime for rendered artifacts (SVG).
	TTLArtifact = 24 * time.Hour
)

// Cache is the storage interface for derived results.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value.
	// Returns (data, true, nil) on a hit and (nil, false, nil) on a miss;
	// errors are reserved for backend failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl stores the entry without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
