package orders

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Backend interface {
	Get(ctx context.Context, path string, out any, opts ...api.RequestOption) error
	Post(ctx context.Context, path string, in, out any, opts ...api.RequestOption) error
}

type Client struct {
	backend Backend
}

func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

// CreateOrder submits the order as is. Empty item lists are sent too; the
// backend decides whether they are acceptable.
func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderSuccess, error) {
	if req.Items == nil {
		req.Items = []domain.OrderItem{}
	}
	var res domain.OrderSuccess
	if err := c.backend.Post(ctx, "/orders", req, &res); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &res, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	if err := c.backend.Get(ctx, "/orders/"+url.PathEscape(orderID), &o); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return &o, nil
}
