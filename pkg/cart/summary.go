package cart

import (
	"fmt"
	"math"
	"time"
)

// Receipt is the snapshot taken by Checkout before the ledger is cleared.
// Amounts are unrounded.
type Receipt struct {
	CartID       string     `json:"cart_id,omitempty"`
	Items        []LineItem `json:"items"`
	ItemCount    int        `json:"item_count"`
	Subtotal     float64    `json:"subtotal"`
	Tax          float64    `json:"tax"`
	Total        float64    `json:"total"`
	CheckedOutAt time.Time  `json:"checked_out_at"`
}

// Summary is the display form of a cart: amounts rounded to cents
type Summary struct {
	ID        string     `json:"id,omitempty"`
	Items     []LineItem `json:"items"`
	ItemCount int        `json:"item_count"`
	Subtotal  float64    `json:"subtotal"`
	Tax       float64    `json:"tax"`
	Total     float64    `json:"total"`
	TaxRate   float64    `json:"tax_rate"`
	Display   Display    `json:"display"`
}

// Display carries the formatted amounts shown to shoppers
type Display struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// Summarize builds the display form of l
func Summarize(id string, l *Ledger) Summary {
	subtotal, tax, total := l.Subtotal(), l.Tax(), l.Total()
	return Summary{
		ID:        id,
		Items:     l.Items(),
		ItemCount: l.ItemCount(),
		Subtotal:  Round2(subtotal),
		Tax:       Round2(tax),
		Total:     Round2(total),
		TaxRate:   TaxRate,
		Display: Display{
			Subtotal: FormatAmount(subtotal),
			Tax:      FormatAmount(tax),
			Total:    FormatAmount(total),
		},
	}
}

// Round2 rounds half away from zero to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders v as dollars with two decimals
func FormatAmount(v float64) string {
	return fmt.Sprintf("$%.2f", Round2(v))
}
