package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

// Cache holds rendered responses for a short time. A miss is reported with
// ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Health(ctx context.Context) map[string]interface{}
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)

// FeedKey generates a consistent cache key for a feed request.
func FeedKey(path, rawQuery string) string {
	hash := sha256.Sum256([]byte(path + "?" + rawQuery))
	return fmt.Sprintf("feed:%x", hash[:8]) // Use first 8 bytes for shorter keys
}
