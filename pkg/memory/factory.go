package memory

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted by New
const (
	ProviderInMemory = "inmemory"
	ProviderRedis    = "redis"
	ProviderBadger   = "badger"
)

// Options selects and configures a Memory provider
type Options struct {
	Provider   string
	RedisURL   string
	BadgerPath string
	Namespace  string
	DefaultTTL time.Duration
}

// New builds the Memory provider named in opts
func New(ctx context.Context, opts Options) (Memory, error) {
	var (
		m   Memory
		err error
	)
	switch opts.Provider {
	case "", ProviderInMemory:
		m = NewInMemoryStore()
	case ProviderRedis:
		m, err = NewRedisMemory(ctx, opts.RedisURL, opts.Namespace)
	case ProviderBadger:
		m, err = NewBadgerMemory(opts.BadgerPath, opts.Namespace)
	default:
		return nil, fmt.Errorf("unknown memory provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.DefaultTTL != 0 {
		m.SetTTL(opts.DefaultTTL)
	}
	return m, nil
}
