package memory

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key is absent or expired
var ErrKeyNotFound = errors.New("key not found")

// Memory is a small key/value store with per-key expiry.
//
// A ttl of zero uses the store's default TTL; a negative ttl stores the value
// without expiry.
type Memory interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetTTL(ttl time.Duration)
	Close() error
}
