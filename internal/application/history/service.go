// Package history derives the order history view: a read-only, sorted,
// status-annotated projection of the user's orders. Mutation happens only in
// the checkout workflows; this package always reflects the latest fetch.
package history

import (
	"context"
	"fmt"

	domorder "github.com/richclaudfelixjp/storefront/internal/domain/order"
	"github.com/richclaudfelixjp/storefront/internal/observability"
	"github.com/richclaudfelixjp/storefront/internal/observability/logctx"
)

type OrderLister interface {
	List(ctx context.Context) ([]domorder.Order, error)
}

// Entry is one order annotated for display. RetryPayment marks the
// affordance to re-enter the payment workflow in retry mode.
type Entry struct {
	Order        domorder.Order
	StatusLabel  string
	RetryPayment bool
}

type Service struct {
	orders OrderLister
	log    observability.Logger
}

func NewService(orders OrderLister, tel observability.Observability) *Service {
	logger := observability.NopLogger()
	if tel != nil {
		logger = tel.Logger()
	}
	return &Service{
		orders: orders,
		log:    logger.With(observability.F("component", "order_history")),
	}
}

// List fetches the user's orders, newest first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		logctx.FromOr(ctx, s.log).Warn("order_history_fetch_failed",
			observability.F("error", err.Error()),
		)
		return nil, fmt.Errorf("history: list orders: %w", err)
	}

	domorder.SortByDateDesc(orders)

	entries := make([]Entry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, Entry{
			Order:        o,
			StatusLabel:  o.StatusLabel(),
			RetryPayment: o.CanRetryPayment(),
		})
	}
	return entries, nil
}
