package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerMemory implements Memory on an embedded Badger database
type BadgerMemory struct {
	db         *badger.DB
	namespace  string
	defaultTTL time.Duration
	mu         sync.RWMutex
}

// NewBadgerMemory opens (or creates) a Badger database at path. An empty
// path opens an in-memory database.
func NewBadgerMemory(path, namespace string) (*BadgerMemory, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}

	if namespace == "" {
		namespace = "agrimarket"
	}

	return &BadgerMemory{
		db:         db,
		namespace:  namespace,
		defaultTTL: time.Hour,
	}, nil
}

// Set stores a value, applying the TTL through Badger's entry expiry
func (b *BadgerMemory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		b.mu.RLock()
		ttl = b.defaultTTL
		b.mu.RUnlock()
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(b.buildKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Get retrieves a value by key
func (b *BadgerMemory) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.buildKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

// Delete removes a key
func (b *BadgerMemory) Delete(ctx context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.buildKey(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Exists checks if a key exists
func (b *BadgerMemory) Exists(ctx context.Context, key string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(b.buildKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return true, nil
}

// SetTTL sets the default TTL for future operations
func (b *BadgerMemory) SetTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defaultTTL = ttl
}

func (b *BadgerMemory) buildKey(key string) []byte {
	return []byte(b.namespace + ":" + key)
}

// Close closes the database
func (b *BadgerMemory) Close() error {
	return b.db.Close()
}
