package checkout

import (
	"context"
	"time"

	domcart "github.com/richclaudfelixjp/storefront/internal/domain/cart"
	domorder "github.com/richclaudfelixjp/storefront/internal/domain/order"
	dompayment "github.com/richclaudfelixjp/storefront/internal/domain/payment"
)

// CartStore is the slice of the cart store the workflows depend on: a forced
// fresh fetch before the irreversible step, never the render-time snapshot.
type CartStore interface {
	Fetch(ctx context.Context) *domcart.Cart
}

// OrderGateway creates and lists orders through the shop API.
type OrderGateway interface {
	// Create submits the server-side cart as a new order. The server owns
	// totals and stock; the client sends no line items.
	Create(ctx context.Context) (domorder.Order, error)
	List(ctx context.Context) ([]domorder.Order, error)
}

// PaymentGateway obtains payment authorizations. RetryIntent re-derives the
// intent for an order already in PENDING; it never creates a second order.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, orderID int64) (dompayment.Intent, error)
	RetryIntent(ctx context.Context, orderID int64) (dompayment.Intent, error)
}

// Navigator abstracts the forced transitions the workflows trigger. The shell
// decides what "navigating" means.
type Navigator interface {
	ToLogin()
	ToOrderHistory(flash string)
}

// Clock lets tests observe the post-payment dwell instead of sleeping.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// SystemClock returns a Clock backed by real timers.
func SystemClock() Clock { return realClock{} }

// SessionReader gates the workflows on an authenticated session.
type SessionReader interface {
	Authenticated() bool
}
