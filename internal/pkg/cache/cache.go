package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL cache shared by the boundary services.
type Cache interface {
	// Get returns the value stored under key. The bool is false on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A ttl <= 0 keeps the entry until it is cleared.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear removes key, or every entry when key is empty.
	Clear(ctx context.Context, key string) error
}
