package checkout

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/richclaudfelixjp/storefront/internal/application/history"
	domorder "github.com/richclaudfelixjp/storefront/internal/domain/order"
	dompayment "github.com/richclaudfelixjp/storefront/internal/domain/payment"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/api"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentWorkflow(
	payments *fakePaymentGateway,
	orders *fakeOrderGateway,
	confirmer *fakeConfirmer,
	carts *fakeCartStore,
	nav *fakeNavigator,
	clock *fakeClock,
	dwell time.Duration,
) *PaymentWorkflow {
	return NewPaymentWorkflow(payments, orders, confirmer, carts, nav, clock, dwell, nil)
}

func pendingOrder(id int64) domorder.Order {
	return domorder.Order{ID: id, Status: domorder.StatusPending, TotalAmount: 1600}
}

func TestPaymentBegin(t *testing.T) {
	t.Run("fresh attempt requests a new intent", func(t *testing.T) {
		payments := &fakePaymentGateway{intent: dompayment.Intent{ClientSecret: "pi_1_secret_a"}}
		orders := &fakeOrderGateway{orders: []domorder.Order{pendingOrder(42)}}
		wf := newPaymentWorkflow(payments, orders, &fakeConfirmer{}, &fakeCartStore{}, &fakeNavigator{}, &fakeClock{}, 0)

		attempt, err := wf.Begin(context.Background(), 42, false)
		require.NoError(t, err)
		assert.Equal(t, 1, payments.createCalls)
		assert.Zero(t, payments.retryCalls)
		assert.Equal(t, StateAwaitingConfirmation, attempt.State())
		assert.Equal(t, "pi_1_secret_a", attempt.Intent.ClientSecret)
		assert.Equal(t, int64(42), attempt.Order.ID)
	})

	t.Run("retry re-derives the intent and never creates one", func(t *testing.T) {
		payments := &fakePaymentGateway{intent: dompayment.Intent{ClientSecret: "pi_1_secret_b"}}
		orders := &fakeOrderGateway{orders: []domorder.Order{pendingOrder(42)}}
		wf := newPaymentWorkflow(payments, orders, &fakeConfirmer{}, &fakeCartStore{}, &fakeNavigator{}, &fakeClock{}, 0)

		attempt, err := wf.Begin(context.Background(), 42, true)
		require.NoError(t, err)
		assert.Equal(t, 1, payments.retryCalls)
		assert.Zero(t, payments.createCalls)
		assert.Zero(t, orders.createCalls)
		assert.True(t, attempt.IsRetry)
		assert.Equal(t, StateAwaitingConfirmation, attempt.State())
	})

	t.Run("intent failure leaves the attempt failed with the server message", func(t *testing.T) {
		payments := &fakePaymentGateway{intentErr: &serverRejection{status: 400, msg: "order already paid"}}
		wf := newPaymentWorkflow(payments, &fakeOrderGateway{}, &fakeConfirmer{}, &fakeCartStore{}, &fakeNavigator{}, &fakeClock{}, 0)

		attempt, err := wf.Begin(context.Background(), 42, false)
		require.ErrorIs(t, err, ErrPaymentInit)
		require.NotNil(t, attempt)
		assert.Equal(t, StateFailed, attempt.State())
		assert.Equal(t, "order already paid", attempt.FailureMessage)
	})

	t.Run("unreadable order details fail the attempt before confirmation", func(t *testing.T) {
		payments := &fakePaymentGateway{intent: dompayment.Intent{ClientSecret: "pi_1_secret_c"}}
		orders := &fakeOrderGateway{listErr: context.DeadlineExceeded}
		wf := newPaymentWorkflow(payments, orders, &fakeConfirmer{}, &fakeCartStore{}, &fakeNavigator{}, &fakeClock{}, 0)

		attempt, err := wf.Begin(context.Background(), 42, false)
		require.ErrorIs(t, err, ErrPaymentInit)
		require.NotNil(t, attempt)
		assert.Equal(t, StateFailed, attempt.State())
		assert.NotEmpty(t, attempt.FailureMessage)

		confirmErr := wf.Confirm(context.Background(), attempt, dompayment.Instrument{PaymentMethodID: "pm_1"})
		assert.ErrorIs(t, confirmErr, ErrInvalidTransition)
	})

	t.Run("order missing from the listing does not block the attempt", func(t *testing.T) {
		payments := &fakePaymentGateway{intent: dompayment.Intent{ClientSecret: "pi_1_secret_g"}}
		orders := &fakeOrderGateway{orders: []domorder.Order{pendingOrder(7)}}
		wf := newPaymentWorkflow(payments, orders, &fakeConfirmer{}, &fakeCartStore{}, &fakeNavigator{}, &fakeClock{}, 0)

		attempt, err := wf.Begin(context.Background(), 42, false)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingConfirmation, attempt.State())
		assert.Zero(t, attempt.Order.ID)
	})
}

func TestPaymentConfirm(t *testing.T) {
	begin := func(t *testing.T, wf *PaymentWorkflow) *Attempt {
		t.Helper()
		attempt, err := wf.Begin(context.Background(), 42, false)
		require.NoError(t, err)
		require.Equal(t, StateAwaitingConfirmation, attempt.State())
		return attempt
	}

	t.Run("success refreshes the cart, dwells, then navigates", func(t *testing.T) {
		payments := &fakePaymentGateway{intent: dompayment.Intent{ClientSecret: "pi_1_secret_d"}}
		orders := &fakeOrderGateway{orders: []domorder.Order{pendingOrder(42)}}
		confirmer := &fakeConfirmer{status: dompayment.StatusSucceeded}
		carts := &fakeCartStore{}
		nav := &fakeNavigator{}
		clock := &fakeClock{}
		wf := newPaymentWorkflow(payments, orders, confirmer, carts, nav, clock, 2*time.Second)

		attempt := begin(t, wf)
		err := wf.Confirm(context.Background(), attempt, dompayment.Instrument{PaymentMethodID: "pm_1"})
		require.NoError(t, err)

		assert.Equal(t, StateSucceeded, attempt.State())
		assert.Equal(t, 1, confirmer.calls)
		assert.Equal(t, 1, carts.fetchCalls)
		require.Len(t, clock.slept, 1)
		assert.Equal(t, 2*time.Second, clock.slept[0])
		assert.Equal(t, 1, nav.historyCalls)
		assert.Equal(t, "payment completed", nav.lastFlash)
	})

	t.Run("decline is terminal for the attempt, not the order", func(t *testing.T) {
		payments := &fakePaymentGateway{intent: dompayment.Intent{ClientSecret: "pi_1_secret_e"}}
		orders := &fakeOrderGateway{orders: []domorder.Order{pendingOrder(42)}}
		confirmer := &fakeConfirmer{status: dompayment.StatusFailed, err: dompayment.ErrDeclined}
		carts := &fakeCartStore{}
		nav := &fakeNavigator{}
		wf := newPaymentWorkflow(payments, orders, confirmer, carts, nav, &fakeClock{}, 0)

		attempt := begin(t, wf)
		err := wf.Confirm(context.Background(), attempt, dompayment.Instrument{PaymentMethodID: "pm_1"})
		require.ErrorIs(t, err, dompayment.ErrDeclined)

		assert.Equal(t, StateFailed, attempt.State())
		assert.NotEmpty(t, attempt.FailureMessage)
		assert.Zero(t, carts.fetchCalls)
		assert.Zero(t, nav.historyCalls)
	})

	t.Run("non-succeeded status without an error is still a decline", func(t *testing.T) {
		payments := &fakePaymentGateway{intent: dompayment.Intent{ClientSecret: "pi_1_secret_f"}}
		orders := &fakeOrderGateway{orders: []domorder.Order{pendingOrder(42)}}
		confirmer := &fakeConfirmer{status: dompayment.StatusFailed}
		wf := newPaymentWorkflow(payments, orders, confirmer, &fakeCartStore{}, &fakeNavigator{}, &fakeClock{}, 0)

		attempt := begin(t, wf)
		err := wf.Confirm(context.Background(), attempt, dompayment.Instrument{})
		assert.ErrorIs(t, err, dompayment.ErrDeclined)
		assert.Equal(t, StateFailed, attempt.State())
	})

	t.Run("confirming outside awaiting_confirmation is rejected", func(t *testing.T) {
		wf := newPaymentWorkflow(&fakePaymentGateway{}, &fakeOrderGateway{}, &fakeConfirmer{}, &fakeCartStore{}, &fakeNavigator{}, &fakeClock{}, 0)

		fresh := &Attempt{OrderID: 42}
		err := wf.Confirm(context.Background(), fresh, dompayment.Instrument{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

type confirmerFunc func(context.Context, dompayment.Intent, dompayment.Instrument) (dompayment.Status, error)

func (f confirmerFunc) Confirm(ctx context.Context, i dompayment.Intent, in dompayment.Instrument) (dompayment.Status, error) {
	return f(ctx, i, in)
}

// Runs the payment workflow against the real gateways and reads the order
// back through history, the way the shell does after a successful payment.
func TestPaymentSuccessReflectsInHistory(t *testing.T) {
	status := domorder.StatusPending
	mux := http.NewServeMux()
	mux.HandleFunc("/user/payment/create-payment-intent", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"clientSecret":"pi_9_secret_z"}`))
	})
	mux.HandleFunc("/user/orders", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"orders":[{"id":42,"status":%q,"totalAmount":1600,"orderDate":"2026-05-10T09:00:00Z"}]}`, status)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL, 5*time.Second, memory.NewSessionStore(), nil, nil)
	require.NoError(t, err)
	orders := api.NewOrderGateway(client)
	payments := api.NewPaymentGateway(client)

	// The provider marks the order paid server-side when the charge lands.
	confirmer := confirmerFunc(func(context.Context, dompayment.Intent, dompayment.Instrument) (dompayment.Status, error) {
		status = domorder.StatusPaid
		return dompayment.StatusSucceeded, nil
	})
	carts := &fakeCartStore{}
	nav := &fakeNavigator{}
	wf := NewPaymentWorkflow(payments, orders, confirmer, carts, nav, &fakeClock{}, 0, nil)

	attempt, err := wf.Begin(context.Background(), 42, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1600), attempt.Order.TotalAmount)
	assert.Equal(t, domorder.StatusPending, attempt.Order.Status)

	require.NoError(t, wf.Confirm(context.Background(), attempt, dompayment.Instrument{PaymentMethodID: "pm_1"}))
	assert.Equal(t, 1, carts.fetchCalls)
	assert.Equal(t, 1, nav.historyCalls)

	entries, err := history.NewService(orders, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "paid", entries[0].StatusLabel)
	assert.False(t, entries[0].RetryPayment)
}

func TestAttemptStateMachine(t *testing.T) {
	t.Run("happy path walks initializing to succeeded", func(t *testing.T) {
		a := &Attempt{}
		assert.Equal(t, StateInitializing, a.State())

		require.NoError(t, a.authorized())
		assert.Equal(t, StateAwaitingConfirmation, a.State())

		require.NoError(t, a.confirmed())
		assert.Equal(t, StateSucceeded, a.State())
	})

	t.Run("confirm before authorize is invalid", func(t *testing.T) {
		a := &Attempt{}
		assert.ErrorIs(t, a.confirmed(), ErrInvalidTransition)
	})

	t.Run("failure is reachable from both live states", func(t *testing.T) {
		a := &Attempt{}
		require.NoError(t, a.failed("init failed"))
		assert.Equal(t, StateFailed, a.State())
		assert.Equal(t, "init failed", a.FailureMessage)

		b := &Attempt{}
		require.NoError(t, b.authorized())
		require.NoError(t, b.failed("declined"))
		assert.Equal(t, StateFailed, b.State())
	})

	t.Run("terminal states refuse authorization", func(t *testing.T) {
		a := &Attempt{}
		require.NoError(t, a.failed("declined"))
		assert.ErrorIs(t, a.authorized(), ErrInvalidTransition)

		b := &Attempt{}
		require.NoError(t, b.authorized())
		require.NoError(t, b.confirmed())
		assert.ErrorIs(t, b.authorized(), ErrInvalidTransition)
	})
}
