package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AllCategories selects every product.
const AllCategories = "all"

// Getter is the slice of the REST client the gateway needs.
type Getter interface {
	Get(ctx context.Context, path string, out any, opts ...api.RequestOption) error
}

// Gateway reads catalog data from the backend. Nothing is cached: concurrent
// identical reads share one request, later calls always refetch.
type Gateway struct {
	client Getter
	sfg    singleflight.Group
}

func NewGateway(client Getter) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) ListProducts(ctx context.Context) ([]domain.Product, error) {
	v, err := g.shared(ctx, "products", func(ctx context.Context) (any, error) {
		var products []domain.Product
		if err := g.client.Get(ctx, "/products", &products); err != nil {
			return nil, err
		}
		if products == nil {
			products = []domain.Product{}
		}
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	// callers must not share the backing array
	shared := v.([]domain.Product)
	out := make([]domain.Product, len(shared))
	copy(out, shared)
	return out, nil
}

func (g *Gateway) ListCategories(ctx context.Context) ([]string, error) {
	v, err := g.shared(ctx, "categories", func(ctx context.Context) (any, error) {
		var categories []string
		if err := g.client.Get(ctx, "/categories", &categories); err != nil {
			return nil, err
		}
		if categories == nil {
			categories = []string{}
		}
		return categories, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	shared := v.([]string)
	out := make([]string, len(shared))
	copy(out, shared)
	return out, nil
}

// shared runs fn once for all concurrent callers of key. The call itself is
// detached from any one caller; the client's own timeout bounds it. Each
// caller stops waiting when its ctx is done.
func (g *Gateway) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	callCtx := context.WithoutCancel(ctx)
	ch := g.sfg.DoChan(key, func() (interface{}, error) {
		return fn(callCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gateway) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := g.client.Get(ctx, "/products/"+url.PathEscape(id), &p); err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

// Ping checks that the backend answers its health endpoint.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.client.Get(ctx, "/health", nil); err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	return nil
}
