package cart

import (
	"context"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/cart"
)

// Gateway is the outbound port for the remote cart API.
type Gateway interface {
	Fetch(ctx context.Context) (*domain.Cart, error)
	Add(ctx context.Context, productID int64, quantity int) error
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) error
	Remove(ctx context.Context, itemID int64) error
}

// SessionReader is the slice of the session store the cart store needs: a
// fetch without a session resolves to no cart without a network call.
type SessionReader interface {
	Authenticated() bool
}
