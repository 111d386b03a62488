package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/agrimarket/pkg/logger"
	"github.com/itsneelabh/agrimarket/pkg/memory"
)

// ErrCartNotFound is returned for unknown carts and for carts owned by someone else
var ErrCartNotFound = errors.New("cart not found")

// Cart is a persisted ledger owned by one shopper
type Cart struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Lines     Ledger    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the display form of the cart
func (c *Cart) Summary() Summary {
	return Summarize(c.ID, &c.Lines)
}

// Store keeps carts in a memory.Memory as JSON
type Store struct {
	mem    memory.Memory
	ttl    time.Duration
	policy AddPolicy
	log    logger.Logger
	now    func() time.Time
	newID  func() string

	// read-modify-write of a cart happens under mu
	mu sync.Mutex
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithTTL sets how long an untouched cart is kept
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithAddPolicy sets how duplicate product ids are handled
func WithAddPolicy(p AddPolicy) StoreOption {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the store logger
func WithLogger(l logger.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a cart store on top of mem
func NewStore(mem memory.Memory, opts ...StoreOption) *Store {
	s := &Store{
		mem:    mem,
		ttl:    7 * 24 * time.Hour,
		policy: MergeDuplicates,
		log:    logger.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts an empty cart for owner
func (s *Store) Create(ctx context.Context, owner string) (*Cart, error) {
	now := s.now().UTC()
	c := &Cart{
		ID:        s.newID(),
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("cart created", "cart_id", c.ID, "owner", owner)
	return c, nil
}

// Get loads a cart owned by owner
func (s *Store) Get(ctx context.Context, owner, id string) (*Cart, error) {
	return s.load(ctx, owner, id)
}

// AddItem adds item to the cart using the store's AddPolicy
func (s *Store) AddItem(ctx context.Context, owner, id string, item LineItem) (*Cart, error) {
	return s.update(ctx, owner, id, func(c *Cart) error {
		return c.Lines.Add(item, s.policy)
	})
}

// SetQuantity replaces a line's quantity; zero or less removes it
func (s *Store) SetQuantity(ctx context.Context, owner, id, itemID string, n int) (*Cart, error) {
	return s.update(ctx, owner, id, func(c *Cart) error {
		c.Lines.SetQuantity(itemID, n)
		return nil
	})
}

// SetQuantityText applies free-text quantity input to a line
func (s *Store) SetQuantityText(ctx context.Context, owner, id, itemID, text string) (*Cart, error) {
	return s.SetQuantity(ctx, owner, id, itemID, ParseQuantity(text))
}

// RemoveItem drops a line; removing an absent line succeeds
func (s *Store) RemoveItem(ctx context.Context, owner, id, itemID string) (*Cart, error) {
	return s.update(ctx, owner, id, func(c *Cart) error {
		c.Lines.RemoveItem(itemID)
		return nil
	})
}

// Checkout clears the cart and returns the receipt of what it held
func (s *Store) Checkout(ctx context.Context, owner, id string) (Receipt, error) {
	var receipt Receipt
	_, err := s.update(ctx, owner, id, func(c *Cart) error {
		receipt = c.Lines.Checkout()
		receipt.CartID = c.ID
		receipt.CheckedOutAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.log.Info("cart checked out",
		"cart_id", id,
		"items", receipt.ItemCount,
		"total", FormatAmount(receipt.Total))
	return receipt, nil
}

// Delete removes a cart entirely
func (s *Store) Delete(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.load(ctx, owner, id); err != nil {
		return err
	}
	if err := s.mem.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, owner, id string, fn func(*Cart) error) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) load(ctx context.Context, owner, id string) (*Cart, error) {
	data, err := s.mem.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, memory.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
		}
		return nil, fmt.Errorf("load cart %s: %w", id, err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", id, err)
	}
	if c.Owner != owner {
		s.log.Warn("cart owner mismatch", "cart_id", id, "owner", owner)
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	return &c, nil
}

func (s *Store) save(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", c.ID, err)
	}
	if err := s.mem.Set(ctx, key(c.ID), data, s.ttl); err != nil {
		return fmt.Errorf("save cart %s: %w", c.ID, err)
	}
	return nil
}

func key(id string) string {
	return "cart:" + id
}
