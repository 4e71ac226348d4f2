// Package cart holds the client's authoritative local view of the shopping
// cart. The cached snapshot is only ever replaced wholesale by a fetch;
// every mutating call returns only after the canonical state has been
// reloaded, trading a round trip for zero local/remote drift.
package cart

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/cart"
	"github.com/richclaudfelixjp/storefront/internal/observability"
	"github.com/richclaudfelixjp/storefront/internal/observability/logctx"
)

const componentCartStore = "cart_store"

// FetchFailureLevel selects how loudly a soft-failed cart fetch is logged.
// The degradation itself (treat as empty cart) is deliberate; how visible it
// is should be an operator's call.
type FetchFailureLevel string

const (
	FetchFailureDebug FetchFailureLevel = "debug"
	FetchFailureWarn  FetchFailureLevel = "warn"
	FetchFailureError FetchFailureLevel = "error"
)

type Store struct {
	gateway  Gateway
	sessions SessionReader
	log      observability.Logger
	failLvl  FetchFailureLevel

	mu sync.Mutex
	// cached is the last snapshot observed; nil means "no cart".
	cached *domain.Cart
	// generation fences concurrent fetches: a fetch that completes after a
	// newer one started must not overwrite the newer snapshot.
	generation uint64
}

func NewStore(gateway Gateway, sessions SessionReader, failLvl FetchFailureLevel, tel observability.Observability) *Store {
	logger := observability.NopLogger()
	if tel != nil {
		logger = tel.Logger()
	}
	if failLvl == "" {
		failLvl = FetchFailureWarn
	}
	return &Store{
		gateway:  gateway,
		sessions: sessions,
		log:      logger.With(observability.F("component", componentCartStore)),
		failLvl:  failLvl,
	}
}

// Snapshot returns a copy of the cached cart, nil when none is held. The copy
// must be treated as stale immediately after any mutating call until the
// store refetches.
func (s *Store) Snapshot() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached.Clone()
}

// Fetch replaces the cached cart with the server's view. Unauthenticated
// callers resolve to nil without a network call. A gateway failure degrades
// to "no cart" rather than surfacing an error: an empty cart is always a
// safe, recoverable state for the caller to render.
func (s *Store) Fetch(ctx context.Context) *domain.Cart {
	if !s.sessions.Authenticated() {
		s.replace(s.nextGeneration(), nil)
		return nil
	}

	gen := s.nextGeneration()
	fetched, err := s.gateway.Fetch(ctx)
	if err != nil {
		s.logFetchFailure(ctx, err)
		fetched = nil
	}
	return s.replace(gen, fetched)
}

// Add puts quantity units of a product in the cart, then refetches.
func (s *Store) Add(ctx context.Context, productID int64, quantity int) (*domain.Cart, error) {
	if err := s.gateway.Add(ctx, productID, quantity); err != nil {
		return s.Snapshot(), fmt.Errorf("cart: add item: %w", err)
	}
	return s.Fetch(ctx), nil
}

// UpdateQuantity changes one line's quantity, then refetches.
func (s *Store) UpdateQuantity(ctx context.Context, itemID int64, quantity int) (*domain.Cart, error) {
	if err := s.gateway.UpdateQuantity(ctx, itemID, quantity); err != nil {
		return s.Snapshot(), fmt.Errorf("cart: update quantity: %w", err)
	}
	return s.Fetch(ctx), nil
}

// Remove deletes one line, then refetches.
func (s *Store) Remove(ctx context.Context, itemID int64) (*domain.Cart, error) {
	if err := s.gateway.Remove(ctx, itemID); err != nil {
		return s.Snapshot(), fmt.Errorf("cart: remove item: %w", err)
	}
	return s.Fetch(ctx), nil
}

func (s *Store) nextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// replace installs the snapshot unless a newer fetch has started since gen
// was taken; stale results are discarded and the newer snapshot returned.
func (s *Store) replace(gen uint64, c *domain.Cart) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.cached = c
	}
	return s.cached.Clone()
}

func (s *Store) logFetchFailure(ctx context.Context, err error) {
	logger := logctx.FromOr(ctx, s.log)
	fields := []observability.Field{
		observability.F("error", err.Error()),
		observability.F("degraded_to", "empty_cart"),
	}
	switch s.failLvl {
	case FetchFailureDebug:
		logger.Debug("cart_fetch_failed", fields...)
	case FetchFailureError:
		logger.Error("cart_fetch_failed", fields...)
	default:
		logger.Warn("cart_fetch_failed", fields...)
	}
}
