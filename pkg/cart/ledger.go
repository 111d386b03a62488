// Package cart implements the shopping cart ledger and its persistent store.
//
// A Ledger is an ordered list of line items. Totals are recomputed from the
// lines on every call and are never rounded internally; rounding to cents
// happens only when a Summary is built for display.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// TaxRate is the flat sales tax applied to the subtotal
const TaxRate = 0.08

// ErrInvalidItem is returned when a line item cannot be added
var ErrInvalidItem = errors.New("invalid line item")

// AddPolicy decides what adding an already-present product does
type AddPolicy int

const (
	// MergeDuplicates increments the existing line by one
	MergeDuplicates AddPolicy = iota
	// AppendDuplicates appends another line with the same product id
	AppendDuplicates
)

// LineItem is one row of the cart
type LineItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Vendor    string  `json:"vendor,omitempty"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// LineTotal is unit price times quantity
func (li LineItem) LineTotal() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

// Validate checks the fields a ledger relies on
func (li LineItem) Validate() error {
	if li.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if math.IsNaN(li.UnitPrice) || math.IsInf(li.UnitPrice, 0) || li.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price must be a non-negative number, got %v", ErrInvalidItem, li.UnitPrice)
	}
	return nil
}

// Ledger holds the lines of one cart. The zero value is an empty ledger.
type Ledger struct {
	items []LineItem
}

// NewLedger builds a ledger from items, dropping lines whose quantity is not positive
func NewLedger(items ...LineItem) *Ledger {
	l := &Ledger{}
	for _, it := range items {
		if it.Quantity > 0 {
			l.items = append(l.items, it)
		}
	}
	return l
}

// Items returns a copy of the lines in order
func (l *Ledger) Items() []LineItem {
	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// Len is the number of lines
func (l *Ledger) Len() int {
	return len(l.items)
}

// Quantity returns the total quantity held for id
func (l *Ledger) Quantity(id string) int {
	n := 0
	for _, it := range l.items {
		if it.ID == id {
			n += it.Quantity
		}
	}
	return n
}

// ItemCount is the sum of all quantities
func (l *Ledger) ItemCount() int {
	n := 0
	for _, it := range l.items {
		n += it.Quantity
	}
	return n
}

// Add puts item in the ledger. A non-positive quantity is treated as 1.
func (l *Ledger) Add(item LineItem, policy AddPolicy) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if policy == MergeDuplicates {
		for i := range l.items {
			if l.items[i].ID == item.ID {
				l.items[i].Quantity += item.Quantity
				return nil
			}
		}
	}
	l.items = append(l.items, item)
	return nil
}

// SetQuantity replaces the quantity of every line with id. A quantity of
// zero or less removes those lines. Unknown ids are ignored.
func (l *Ledger) SetQuantity(id string, n int) {
	if n <= 0 {
		l.RemoveItem(id)
		return
	}
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Quantity = n
		}
	}
}

// SetQuantityText applies free-text quantity input; see ParseQuantity
func (l *Ledger) SetQuantityText(id, text string) {
	l.SetQuantity(id, ParseQuantity(text))
}

// RemoveItem drops every line with id. Removing an absent id is a no-op.
func (l *Ledger) RemoveItem(id string) {
	kept := l.items[:0]
	for _, it := range l.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	// clear the tail so removed lines are not retained by the backing array
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = LineItem{}
	}
	l.items = kept
}

// Subtotal is the sum of unit price times quantity over all lines
func (l *Ledger) Subtotal() float64 {
	sum := 0.0
	for _, it := range l.items {
		sum += it.LineTotal()
	}
	return sum
}

// Tax is the subtotal times TaxRate
func (l *Ledger) Tax() float64 {
	return l.Subtotal() * TaxRate
}

// Total is subtotal plus tax
func (l *Ledger) Total() float64 {
	subtotal := l.Subtotal()
	return subtotal + subtotal*TaxRate
}

// Clear removes every line
func (l *Ledger) Clear() {
	l.items = nil
}

// Checkout snapshots the totals and clears the ledger. It always succeeds,
// including on an empty ledger.
func (l *Ledger) Checkout() Receipt {
	r := Receipt{
		Items:     l.Items(),
		ItemCount: l.ItemCount(),
		Subtotal:  l.Subtotal(),
		Tax:       l.Tax(),
		Total:     l.Total(),
	}
	l.Clear()
	return r
}

// MarshalJSON encodes the ledger as its list of lines
func (l Ledger) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

// UnmarshalJSON decodes a list of lines, dropping non-positive quantities
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = *NewLedger(items...)
	return nil
}
