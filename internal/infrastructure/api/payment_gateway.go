package api

import (
	"context"
	"fmt"
	"net/http"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/payment"
)

// PaymentGateway binds the /user/payment endpoints. Creation makes a new
// intent for an order; retry re-derives the intent for an order already in
// PENDING without creating a sibling order.
type PaymentGateway struct {
	client *Client
}

func NewPaymentGateway(client *Client) *PaymentGateway {
	return &PaymentGateway{client: client}
}

type createIntentRequest struct {
	OrderID int64 `json:"orderId"`
}

func (g *PaymentGateway) CreateIntent(ctx context.Context, orderID int64) (domain.Intent, error) {
	var out domain.Intent
	err := g.client.do(ctx, call{
		Method:   http.MethodPost,
		Endpoint: "payment.create_intent",
		Path:     "/user/payment/create-payment-intent",
		Body:     createIntentRequest{OrderID: orderID},
		Out:      &out,
	})
	if err != nil {
		return domain.Intent{}, err
	}
	return out, nil
}

func (g *PaymentGateway) RetryIntent(ctx context.Context, orderID int64) (domain.Intent, error) {
	var out domain.Intent
	err := g.client.do(ctx, call{
		Method:   http.MethodGet,
		Endpoint: "payment.retry_intent",
		Path:     fmt.Sprintf("/user/payment/retry-payment/%d", orderID),
		Out:      &out,
	})
	if err != nil {
		return domain.Intent{}, err
	}
	return out, nil
}
