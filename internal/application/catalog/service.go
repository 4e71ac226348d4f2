// Package catalog covers the read path shoppers browse and the admin
// mutation contract. Thin by design; the checkout engine only consumes
// product snapshots embedded in carts and orders.
package catalog

import (
	"context"
	"fmt"
	"io"
)

// Product is the live catalog record. Cart and order lines embed point-in-
// time snapshots of it, which is why checkout revalidates stock.
type Product struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	UnitPrice    int64  `json:"unitPrice"`
	UnitsInStock int    `json:"unitsInStock"`
	ImageURL     string `json:"imageURL"`
}

type Gateway interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, productID int64, filename string, r io.Reader) (string, error)
}

type Service struct {
	gateway Gateway
}

func NewService(gateway Gateway) *Service {
	return &Service{gateway: gateway}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.gateway.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	p, err := s.gateway.Get(ctx, id)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get %d: %w", id, err)
	}
	return p, nil
}

// Admin contract below. A 409 from create surfaces verbatim (duplicate SKU).

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	created, err := s.gateway.Create(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, p Product) (Product, error) {
	updated, err := s.gateway.Update(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update %d: %w", p.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.gateway.Delete(ctx, id); err != nil {
		return fmt.Errorf("catalog: delete %d: %w", id, err)
	}
	return nil
}

func (s *Service) UploadImage(ctx context.Context, productID int64, filename string, r io.Reader) (string, error) {
	url, err := s.gateway.UploadImage(ctx, productID, filename, r)
	if err != nil {
		return "", fmt.Errorf("catalog: upload image for %d: %w", productID, err)
	}
	return url, nil
}
