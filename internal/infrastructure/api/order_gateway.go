package api

import (
	"context"
	"net/http"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/order"
)

// OrderGateway binds the /user/orders endpoints.
type OrderGateway struct {
	client *Client
}

func NewOrderGateway(client *Client) *OrderGateway {
	return &OrderGateway{client: client}
}

// ordersEnvelope is the wire shape shared by creation and listing:
// {"orders": [...]}. For creation the first element is the new order.
type ordersEnvelope struct {
	Orders []domain.Order `json:"orders"`
}

func (g *OrderGateway) Create(ctx context.Context) (domain.Order, error) {
	var out ordersEnvelope
	err := g.client.do(ctx, call{
		Method:   http.MethodPost,
		Endpoint: "orders.create",
		Path:     "/user/orders/create",
		Out:      &out,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(out.Orders) == 0 {
		return domain.Order{}, &Error{
			Status:   http.StatusCreated,
			Message:  "created response carried no order",
			Endpoint: "orders.create",
		}
	}
	return out.Orders[0], nil
}

func (g *OrderGateway) List(ctx context.Context) ([]domain.Order, error) {
	var out ordersEnvelope
	err := g.client.do(ctx, call{
		Method:   http.MethodGet,
		Endpoint: "orders.list",
		Path:     "/user/orders",
		Out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out.Orders, nil
}
