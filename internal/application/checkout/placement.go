// Package checkout drives the two workflows that take a cart to a paid
// order: placement (cart -> PENDING order) and payment (order -> PAID).
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/richclaudfelixjp/storefront/internal/observability"
	"github.com/richclaudfelixjp/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService   = "checkout"
	workflowPlacement = "order.place"
	spanPrefix        = "WF."
)

var (
	ErrNotAuthenticated = errors.New("checkout: no authenticated session")
	ErrCartEmpty        = errors.New("checkout: cart is empty")
	// ErrStockConflict blocks submission when the freshly fetched cart still
	// has out-of-stock or over-subscribed lines. The caller redisplays the
	// refreshed cart so the user can act.
	ErrStockConflict = errors.New("checkout: cart has stock issues")
	// ErrOrderRejected carries the server's verbatim message for a 400-class
	// create failure: the server saw a conflict the client's reconciliation
	// missed. The cart has already been refetched by the time this returns.
	ErrOrderRejected = errors.New("checkout: order rejected by server")
	// ErrOrderFailed is the generic retry-prompting failure; the user must
	// explicitly re-trigger, there is no implicit retry loop.
	ErrOrderFailed = errors.New("checkout: order submission failed")
)

// PlacementWorkflow converts a valid cart into a submitted order. Exactly one
// order-creation call is made per invocation.
type PlacementWorkflow struct {
	carts    CartStore
	orders   OrderGateway
	sessions SessionReader
	tel      observability.Observability

	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
}

func NewPlacementWorkflow(
	carts CartStore,
	orders OrderGateway,
	sessions SessionReader,
	tel observability.Observability,
) *PlacementWorkflow {
	baseLog := observability.NopLogger()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		metricsProvider = tel.Metrics()
	}
	baseLog = baseLog.With(observability.F("service", checkoutService))

	return &PlacementWorkflow{
		carts:      carts,
		orders:     orders,
		sessions:   sessions,
		tel:        tel,
		log:        baseLog,
		reqCounter: metricsProvider.Counter(observability.MWorkflowRequests),
		durHist:    metricsProvider.Histogram(observability.MWorkflowDuration),
	}
}

// PlacementResult hands the new order to the payment workflow: a fresh
// attempt, never a retry.
type PlacementResult struct {
	OrderID int64
	IsRetry bool
}

// ServerMessage is the verbatim payload attached to an ErrOrderRejected.
type placementError struct {
	err     error
	message string
}

func (e *placementError) Error() string { return e.err.Error() + ": " + e.message }
func (e *placementError) Unwrap() error { return e.err }

// RejectionMessage extracts the server's verbatim message from an
// ErrOrderRejected, or empty for other errors.
func RejectionMessage(err error) string {
	var pe *placementError
	if errors.As(err, &pe) {
		return pe.message
	}
	return ""
}

// Execute runs the placement steps strictly in sequence: fresh fetch,
// reconciliation on the fresh cart, single create call, handoff.
func (w *PlacementWorkflow) Execute(ctx context.Context) (_ *PlacementResult, err error) {
	logger := logctx.FromOr(ctx, w.log).With(observability.F("workflow", workflowPlacement))

	tracer := observability.NopTracer()
	if w.tel != nil {
		tracer = w.tel.Tracer()
	}
	ctx, span := tracer.Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("workflow", workflowPlacement),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}
		w.reqCounter.Add(1,
			observability.L("workflow", workflowPlacement),
			observability.L("outcome", outcome),
		)
		w.durHist.Observe(lat, observability.L("workflow", workflowPlacement))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("workflow_done", fields...)
	}()

	if !w.sessions.Authenticated() {
		outcome, statusText = "error", "NOT_AUTHENTICATED"
		return nil, ErrNotAuthenticated
	}

	// Never trust the render-time cart: the snapshot the user approved may
	// be arbitrarily stale by now.
	fresh := w.carts.Fetch(ctx)
	if fresh.IsEmpty() {
		outcome, statusText = "error", "CART_EMPTY"
		return nil, ErrCartEmpty
	}
	if fresh.HasStockIssues() {
		outcome, statusText = "error", "STOCK_CONFLICT"
		span.AddEvent("checkout.blocked_on_stock")
		return nil, ErrStockConflict
	}

	created, createErr := w.orders.Create(ctx)
	if createErr != nil {
		if rejected, msg := isRejection(createErr); rejected {
			// Race between the fetch above and the create: the server is
			// authoritative, so refetch before surfacing its message.
			outcome, statusText = "error", "SERVER_CONFLICT"
			w.carts.Fetch(ctx)
			return nil, &placementError{err: ErrOrderRejected, message: msg}
		}
		outcome, statusText = "error", "CREATE_FAILED"
		return nil, errors.Join(ErrOrderFailed, createErr)
	}

	span.SetAttributes(attribute.Int64("order.id", created.ID))
	span.AddEvent("order.created")

	return &PlacementResult{OrderID: created.ID, IsRetry: false}, nil
}
