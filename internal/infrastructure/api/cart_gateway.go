package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/cart"
)

// CartGateway binds the /user/cart endpoints.
type CartGateway struct {
	client *Client
}

func NewCartGateway(client *Client) *CartGateway {
	return &CartGateway{client: client}
}

func (g *CartGateway) Fetch(ctx context.Context) (*domain.Cart, error) {
	var out domain.Cart
	err := g.client.do(ctx, call{
		Method:   http.MethodGet,
		Endpoint: "cart.fetch",
		Path:     "/user/cart",
		Out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *CartGateway) Add(ctx context.Context, productID int64, quantity int) error {
	q := url.Values{}
	q.Set("productId", strconv.FormatInt(productID, 10))
	q.Set("quantity", strconv.Itoa(quantity))
	return g.client.do(ctx, call{
		Method:   http.MethodPost,
		Endpoint: "cart.add",
		Path:     "/user/cart/add",
		Query:    q,
	})
}

func (g *CartGateway) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	q := url.Values{}
	q.Set("quantity", strconv.Itoa(quantity))
	return g.client.do(ctx, call{
		Method:   http.MethodPut,
		Endpoint: "cart.update",
		Path:     fmt.Sprintf("/user/cart/update/%d", itemID),
		Query:    q,
	})
}

func (g *CartGateway) Remove(ctx context.Context, itemID int64) error {
	return g.client.do(ctx, call{
		Method:   http.MethodDelete,
		Endpoint: "cart.remove",
		Path:     fmt.Sprintf("/user/cart/remove/%d", itemID),
	})
}
