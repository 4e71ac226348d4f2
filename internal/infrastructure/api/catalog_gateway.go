package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/richclaudfelixjp/storefront/internal/application/catalog"
)

// CatalogGateway binds the public /products reads and the /admin/products
// mutation contract. Admin calls ride the same session guard as everything
// else.
type CatalogGateway struct {
	client *Client
}

func NewCatalogGateway(client *Client) *CatalogGateway {
	return &CatalogGateway{client: client}
}

func (g *CatalogGateway) List(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	err := g.client.do(ctx, call{
		Method:   http.MethodGet,
		Endpoint: "products.list",
		Path:     "/products",
		Out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *CatalogGateway) Get(ctx context.Context, id int64) (catalog.Product, error) {
	var out catalog.Product
	err := g.client.do(ctx, call{
		Method:   http.MethodGet,
		Endpoint: "products.get",
		Path:     fmt.Sprintf("/products/%d", id),
		Out:      &out,
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return out, nil
}

func (g *CatalogGateway) Create(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	var out catalog.Product
	err := g.client.do(ctx, call{
		Method:   http.MethodPost,
		Endpoint: "admin.products.create",
		Path:     "/admin/products",
		Body:     p,
		Out:      &out,
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return out, nil
}

func (g *CatalogGateway) Update(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	var out catalog.Product
	err := g.client.do(ctx, call{
		Method:   http.MethodPut,
		Endpoint: "admin.products.update",
		Path:     fmt.Sprintf("/admin/products/%d", p.ID),
		Body:     p,
		Out:      &out,
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return out, nil
}

func (g *CatalogGateway) Delete(ctx context.Context, id int64) error {
	return g.client.do(ctx, call{
		Method:   http.MethodDelete,
		Endpoint: "admin.products.delete",
		Path:     fmt.Sprintf("/admin/products/%d", id),
	})
}

func (g *CatalogGateway) UploadImage(ctx context.Context, productID int64, filename string, r io.Reader) (string, error) {
	var out struct {
		ImageURL string `json:"imageURL"`
	}
	err := g.client.Upload(ctx,
		"admin.products.upload_image",
		fmt.Sprintf("/admin/products/%d/image", productID),
		"image", filename, r, &out,
	)
	if err != nil {
		return "", err
	}
	return out.ImageURL, nil
}
