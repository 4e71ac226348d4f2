package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/richclaudfelixjp/storefront/internal/domain/order"
	dompayment "github.com/richclaudfelixjp/storefront/internal/domain/payment"
	"github.com/richclaudfelixjp/storefront/internal/observability"
	"github.com/richclaudfelixjp/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	workflowPaymentInit    = "payment.initialize"
	workflowPaymentConfirm = "payment.confirm"
	successFlash           = "payment completed"
)

// ErrPaymentInit marks a failed attempt initialization; terminal for the
// attempt, retriable from order history.
var ErrPaymentInit = errors.New("checkout: payment initialization failed")

// Attempt is one pass through the payment state machine for a single order.
// An order accumulates at most one live authorization at a time; a retry
// targets the same order through a new attempt, never a sibling order.
type Attempt struct {
	OrderID        int64
	IsRetry        bool
	Intent         dompayment.Intent
	Order          domorder.Order
	FailureMessage string

	state attemptState
}

func (a *Attempt) State() AttemptState {
	if a.state == nil {
		return StateInitializing
	}
	return a.state.State()
}

func (a *Attempt) authorized() error {
	next, err := a.current().OnAuthorized(a)
	if err != nil {
		return err
	}
	a.state = next
	return nil
}

func (a *Attempt) confirmed() error {
	next, err := a.current().OnConfirmed(a)
	if err != nil {
		return err
	}
	a.state = next
	return nil
}

func (a *Attempt) failed(reason string) error {
	next, err := a.current().OnFailed(a, reason)
	if err != nil {
		return err
	}
	a.state = next
	return nil
}

func (a *Attempt) current() attemptState {
	if a.state == nil {
		a.state = initializingState{}
	}
	return a.state
}

// PaymentWorkflow obtains an authorization for an order and drives the
// external confirmation step to completion.
type PaymentWorkflow struct {
	payments  PaymentGateway
	orders    OrderGateway
	confirmer dompayment.Confirmer
	carts     CartStore
	nav       Navigator
	clock     Clock
	dwell     time.Duration
	tel       observability.Observability

	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
}

func NewPaymentWorkflow(
	payments PaymentGateway,
	orders OrderGateway,
	confirmer dompayment.Confirmer,
	carts CartStore,
	nav Navigator,
	clock Clock,
	dwell time.Duration,
	tel observability.Observability,
) *PaymentWorkflow {
	baseLog := observability.NopLogger()
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger()
		metricsProvider = tel.Metrics()
	}
	if clock == nil {
		clock = SystemClock()
	}

	return &PaymentWorkflow{
		payments:   payments,
		orders:     orders,
		confirmer:  confirmer,
		carts:      carts,
		nav:        nav,
		clock:      clock,
		dwell:      dwell,
		tel:        tel,
		log:        baseLog.With(observability.F("service", checkoutService)),
		reqCounter: metricsProvider.Counter(observability.MWorkflowRequests),
		durHist:    metricsProvider.Histogram(observability.MWorkflowDuration),
	}
}

// Begin runs the Initializing phase: request an authorization for the order
// (fresh intent, or re-derived intent when isRetry) and load the order's
// details for display. A failure leaves the returned attempt in Failed with
// the server's message attached.
func (w *PaymentWorkflow) Begin(ctx context.Context, orderID int64, isRetry bool) (_ *Attempt, err error) {
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("workflow", workflowPaymentInit),
		observability.F("order_id", orderID),
		observability.F("is_retry", isRetry),
	)

	tracer := observability.NopTracer()
	if w.tel != nil {
		tracer = w.tel.Tracer()
	}
	ctx, span := tracer.Start(ctx, spanPrefix+"PaymentInit",
		attribute.String("workflow", workflowPaymentInit),
		attribute.Int64("order.id", orderID),
		attribute.Bool("payment.is_retry", isRetry),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	attempt := &Attempt{OrderID: orderID, IsRetry: isRetry, state: initializingState{}}

	defer func() {
		w.finish(ctx, span, logger, workflowPaymentInit, start, outcome, statusText, err)
	}()

	var intent dompayment.Intent
	var intentErr error
	if isRetry {
		intent, intentErr = w.payments.RetryIntent(ctx, orderID)
	} else {
		intent, intentErr = w.payments.CreateIntent(ctx, orderID)
	}
	if intentErr != nil {
		outcome, statusText = "error", "INTENT_FAILED"
		msg := serverMessageOr(intentErr, "payment initialization failed")
		_ = attempt.failed(msg)
		return attempt, fmt.Errorf("%w: %s", ErrPaymentInit, msg)
	}
	attempt.Intent = intent

	// The order's details back the confirmation screen; confirming a charge
	// the user cannot see the amount of is worse than failing the attempt.
	orders, listErr := w.orders.List(ctx)
	if listErr != nil {
		outcome, statusText = "error", "ORDER_LOOKUP_FAILED"
		msg := serverMessageOr(listErr, "order details unavailable")
		_ = attempt.failed(msg)
		return attempt, fmt.Errorf("%w: %s", ErrPaymentInit, msg)
	}
	if o, findErr := domorder.FindByID(orders, orderID); findErr == nil {
		attempt.Order = o
	}

	if err := attempt.authorized(); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return attempt, err
	}
	span.AddEvent("payment.intent_obtained")
	return attempt, nil
}

// Confirm runs the AwaitingConfirmation phase: hand the authorization and the
// user's instrument to the provider. A provider failure is terminal for the
// attempt; the order stays PENDING for a later retry. On success the cart
// store is refreshed, the success state dwells for its minimum visibility
// window, and the user is navigated to order history.
func (w *PaymentWorkflow) Confirm(ctx context.Context, attempt *Attempt, instrument dompayment.Instrument) (err error) {
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("workflow", workflowPaymentConfirm),
		observability.F("order_id", attempt.OrderID),
	)

	tracer := observability.NopTracer()
	if w.tel != nil {
		tracer = w.tel.Tracer()
	}
	ctx, span := tracer.Start(ctx, spanPrefix+"PaymentConfirm",
		attribute.String("workflow", workflowPaymentConfirm),
		attribute.Int64("order.id", attempt.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		w.finish(ctx, span, logger, workflowPaymentConfirm, start, outcome, statusText, err)
	}()

	if attempt.State() != StateAwaitingConfirmation {
		outcome, statusText = "error", "NOT_AWAITING_CONFIRMATION"
		return ErrInvalidTransition
	}

	status, confirmErr := w.confirmer.Confirm(ctx, attempt.Intent, instrument)
	if confirmErr != nil || status != dompayment.StatusSucceeded {
		outcome, statusText = "error", "DECLINED"
		reason := "payment declined"
		if confirmErr != nil {
			reason = confirmErr.Error()
		}
		if transErr := attempt.failed(reason); transErr != nil {
			statusText = "STATE_TRANSITION_FAILED"
			return transErr
		}
		return fmt.Errorf("%w: %s", dompayment.ErrDeclined, reason)
	}

	if transErr := attempt.confirmed(); transErr != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return transErr
	}
	span.AddEvent("payment.confirmed")

	// Inventory moved server-side; make cart views reflect the completed
	// purchase before the user sees them again.
	w.carts.Fetch(ctx)

	w.clock.Sleep(ctx, w.dwell)
	w.nav.ToOrderHistory(successFlash)
	return nil
}

func (w *PaymentWorkflow) finish(
	ctx context.Context,
	span trace.Span,
	logger observability.Logger,
	workflow string,
	start time.Time,
	outcome, statusText string,
	err error,
) {
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
		observability.L("workflow", workflow),
		observability.L("outcome", outcome),
	)
	w.durHist.Observe(lat, observability.L("workflow", workflow))

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
}

func serverMessageOr(err error, fallback string) string {
	var r rejection
	if errors.As(err, &r) && r.ServerMessage() != "" {
		return r.ServerMessage()
	}
	return fallback
}
