package cart

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be between 1 and available stock")
	ErrItemNotFound    = errors.New("cart: item not found")
)

// ProductSnapshot is a point-in-time copy of a catalog product embedded in a
// cart line. It may be stale relative to the live catalog; reconciliation
// before checkout exists exactly because of that.
type ProductSnapshot struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	UnitPrice    int64  `json:"unitPrice"`
	UnitsInStock int    `json:"unitsInStock"`
	ImageURL     string `json:"imageURL"`
}

type Item struct {
	ID       int64           `json:"id"`
	Quantity int             `json:"quantity"`
	Product  ProductSnapshot `json:"product"`
}

// OutOfStock reports whether the product backing this line has no stock left.
func (i Item) OutOfStock() bool {
	return i.Product.UnitsInStock == 0
}

// OverSubscribed reports whether the line asks for more units than the
// snapshot says are available.
func (i Item) OverSubscribed() bool {
	return i.Quantity > i.Product.UnitsInStock
}

// Cart is the server-owned collection of line items. The client only ever
// holds a cached copy, replaced wholesale by a fetch.
type Cart struct {
	Items []Item `json:"items"`
}

// HasStockIssues reports whether any line is out of stock or over-subscribed.
// A nil or empty cart has no issues.
func (c *Cart) HasStockIssues() bool {
	if c == nil {
		return false
	}
	for _, item := range c.Items {
		if item.OutOfStock() || item.OverSubscribed() {
			return true
		}
	}
	return false
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// ItemCount is the total number of units across all lines.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal sums quantity times unit price over the cached snapshot. Display
// only; the server recomputes the authoritative total at order time.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		line := decimal.NewFromInt(item.Product.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := &Cart{Items: make([]Item, len(c.Items))}
	copy(clone.Items, c.Items)
	return clone
}

// ValidQuantity reports whether q is submittable for the given stock level.
func ValidQuantity(q, unitsInStock int) bool {
	return q >= 1 && q <= unitsInStock
}

// ClampQuantity pre-filters user input to the valid range before submission.
// Server-observed violations are still surfaced, never silently clamped.
func ClampQuantity(q, unitsInStock int) int {
	if q < 1 {
		return 1
	}
	if q > unitsInStock {
		return unitsInStock
	}
	return q
}
