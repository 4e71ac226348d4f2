package order

import (
	"errors"
	"sort"
	"time"
)

var ErrNotFound = errors.New("order: not found")

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// LineItem is a frozen copy of a cart line at order-creation time.
type LineItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

// Order is created server-side from the cart at checkout. Immutable once
// created except for Status and PaymentIntentID.
type Order struct {
	ID              int64      `json:"id"`
	OrderDate       time.Time  `json:"orderDate"`
	Status          Status     `json:"status"`
	TotalAmount     int64      `json:"totalAmount"`
	OrderItems      []LineItem `json:"orderItems"`
	PaymentIntentID string     `json:"paymentIntentId,omitempty"`
}

// CanRetryPayment reports whether the order is still waiting for a successful
// payment. Retry re-derives the intent for this order; it never creates a
// sibling order.
func (o Order) CanRetryPayment() bool {
	return o.Status == StatusPending
}

// StatusLabel maps the wire status to a human-readable annotation. Unknown
// statuses fall through unchanged.
func (o Order) StatusLabel() string {
	switch o.Status {
	case StatusPending:
		return "pending"
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "cancelled"
	default:
		return string(o.Status)
	}
}

// SortByDateDesc orders newest-first, in place.
func SortByDateDesc(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OrderDate.After(orders[j].OrderDate)
	})
}

// FindByID returns the order with the given id from a fetched list.
func FindByID(orders []Order, id int64) (Order, error) {
	for _, o := range orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}
