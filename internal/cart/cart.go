package cart

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// Cart holds the line items of one in-progress bill. Item names are unique;
// adding an existing name merges quantities.
type Cart struct {
	Items []pricing.Item `json:"items"`
}

// Customer identifies who a bill is for.
type Customer struct {
	Name  string `json:"customerName" validate:"required,max=120"`
	Phone string `json:"customerPhone" validate:"required,phone"`
}

// MaxAmount is the largest amount a NUMERIC(12,2) ledger column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// AddItem merges qty into an existing entry with the same name or appends a new one.
func (c *Cart) AddItem(name string, unitPrice decimal.Decimal, qty int, shelf string) error {
	if strings.TrimSpace(name) == "" {
		return &InvalidInputError{Field: "name", Reason: "required"}
	}
	if unitPrice.IsNegative() {
		return &InvalidInputError{Field: "price", Reason: "must not be negative"}
	}
	if !unitPrice.Equal(unitPrice.Round(2)) {
		return &InvalidInputError{Field: "price", Reason: "must have at most 2 decimal places"}
	}
	if unitPrice.GreaterThan(MaxAmount) {
		return &InvalidInputError{Field: "price", Reason: "exceeds " + MaxAmount.StringFixed(2)}
	}
	if qty < 1 {
		return &InvalidInputError{Field: "quantity", Reason: "must be at least 1"}
	}
	if qty > math.MaxInt32 {
		return &InvalidInputError{Field: "quantity", Reason: "too large"}
	}
	if c.subtotal().Add(unitPrice.Mul(decimal.NewFromInt(int64(qty)))).GreaterThan(MaxAmount) {
		return &InvalidInputError{Field: "quantity", Reason: "bill total would exceed " + MaxAmount.StringFixed(2)}
	}
	for i := range c.Items {
		if c.Items[i].Name == name {
			if int64(c.Items[i].Qty)+int64(qty) > math.MaxInt32 {
				return &InvalidInputError{Field: "quantity", Reason: "too large"}
			}
			c.Items[i].Qty += qty
			return nil
		}
	}
	c.Items = append(c.Items, pricing.Item{Name: name, UnitPrice: unitPrice, Qty: qty, Shelf: shelf})
	return nil
}

func (c *Cart) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return sum
}

// RemoveItem drops every entry named name. Removing an absent name is a no-op.
func (c *Cart) RemoveItem(name string) bool {
	kept := c.Items[:0]
	removed := false
	for _, it := range c.Items {
		if it.Name == name {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return removed
}

// Empty reports whether the cart has no items.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// Clear removes every item.
func (c *Cart) Clear() {
	c.Items = nil
}

// ComputeTotals prices every item and sums the rounded line amounts.
func (c *Cart) ComputeTotals(rates pricing.Rates) ([]pricing.Line, pricing.Summary) {
	return rates.Compute(c.Items)
}

// Checkout turns the cart into a ledger draft stamped with a single timestamp.
// The cart is left untouched; callers clear it once the draft is committed.
func (c *Cart) Checkout(customer Customer, rates pricing.Rates, at time.Time) (ledger.Draft, error) {
	if c.Empty() {
		return ledger.Draft{}, ErrEmptyCart
	}
	lines, sum := c.ComputeTotals(rates)
	return ledger.Draft{
		CustomerName:  strings.TrimSpace(customer.Name),
		CustomerPhone: strings.TrimSpace(customer.Phone),
		Lines:         lines,
		BillFinal:     sum.Final,
		BilledAt:      at,
	}, nil
}
