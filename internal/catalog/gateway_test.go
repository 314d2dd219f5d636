package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `[
  {"id":"masala-chai","name":"Masala Chai","description":"Spiced","price":250,"category":"masala","image_url":"/img/m.png","weight":"250g","in_stock":true},
  {"id":"assam-gold","name":"Assam Gold","description":"Malty","price":320.5,"category":"black","image_url":"/img/a.png","weight":"100g","in_stock":false}
]`

func newGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL + "/api")
	require.NoError(t, err)
	return NewGateway(c)
}

func TestListProducts(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		io.WriteString(w, productsJSON)
	})

	products, err := g.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "masala-chai", products[0].ID)
	assert.Equal(t, "250g", products[0].Weight)
	assert.True(t, decimal.RequireFromString("320.5").Equal(products[1].Price))
	assert.False(t, products[1].InStock)
}

func TestListProducts_NullBody(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `null`)
	})

	products, err := g.ListProducts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestListProducts_Error(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"Error fetching products"}`)
	})

	_, err := g.ListProducts(context.Background())
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Error fetching products", apiErr.Detail)
}

func TestListCategories(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/categories", r.URL.Path)
		json.NewEncoder(w).Encode([]string{"masala", "black", "green"})
	})

	categories, err := g.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"masala", "black", "green"}, categories)
}

func TestGetProduct(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/masala-chai", r.URL.Path)
		io.WriteString(w, `{"id":"masala-chai","name":"Masala Chai","price":250,"category":"masala"}`)
	})

	p, err := g.GetProduct(context.Background(), "masala-chai")
	require.NoError(t, err)
	assert.Equal(t, "Masala Chai", p.Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"Product not found"}`)
	})

	_, err := g.GetProduct(context.Background(), "nope")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestPing(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		io.WriteString(w, `{"status":"healthy"}`)
	})
	assert.NoError(t, g.Ping(context.Background()))
}

// blockingGetter parks every call until released so concurrent callers pile up.
type blockingGetter struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingGetter) Get(_ context.Context, _ string, out any, _ ...api.RequestOption) error {
	if atomic.AddInt32(&b.calls, 1) == 1 {
		close(b.started)
	}
	<-b.release
	*(out.(*[]domain.Product)) = []domain.Product{{ID: "p1"}}
	return nil
}

func TestListProducts_CoalescesConcurrentReads(t *testing.T) {
	getter := &blockingGetter{started: make(chan struct{}), release: make(chan struct{})}
	g := NewGateway(getter)

	var wg sync.WaitGroup
	results := make([][]domain.Product, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = g.ListProducts(context.Background())
	}()
	<-getter.started
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = g.ListProducts(context.Background())
		}(i)
	}
	// the late callers may or may not join the in-flight call; either way at
	// most one call per wave reaches the backend
	close(getter.release)
	wg.Wait()

	for _, r := range results {
		require.Len(t, r, 1)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&getter.calls), int32(5))

	// no caching: a later call hits the backend again
	before := atomic.LoadInt32(&getter.calls)
	_, err := g.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before+1, atomic.LoadInt32(&getter.calls))
}

// ctxGetter blocks until released or until the context it was handed is done.
type ctxGetter struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (g *ctxGetter) Get(ctx context.Context, _ string, out any, _ ...api.RequestOption) error {
	if atomic.AddInt32(&g.calls, 1) == 1 {
		close(g.started)
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	*(out.(*[]domain.Product)) = []domain.Product{{ID: "p1"}}
	return nil
}

func TestListProducts_CancelledCallerDoesNotFailOthers(t *testing.T) {
	getter := &ctxGetter{started: make(chan struct{}), release: make(chan struct{})}
	g := NewGateway(getter)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := g.ListProducts(firstCtx)
		firstErr <- err
	}()
	<-getter.started

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	// the backend call is still pending, so this caller joins it
	secondDone := make(chan struct{})
	var (
		products []domain.Product
		err      error
	)
	go func() {
		defer close(secondDone)
		products, err = g.ListProducts(context.Background())
	}()
	close(getter.release)
	<-secondDone

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&getter.calls))
}

type failingGetter struct{}

func (failingGetter) Get(context.Context, string, any, ...api.RequestOption) error {
	return api.ErrTransport
}

func TestListCategories_TransportError(t *testing.T) {
	g := NewGateway(failingGetter{})
	_, err := g.ListCategories(context.Background())
	assert.True(t, errors.Is(err, api.ErrTransport))
}

func TestFilterByCategory(t *testing.T) {
	products := []domain.Product{
		{ID: "1", Category: "masala"},
		{ID: "2", Category: "black"},
		{ID: "3", Category: "masala"},
	}

	assert.Len(t, FilterByCategory(products, AllCategories), 3)
	assert.Len(t, FilterByCategory(products, ""), 3)

	masala := FilterByCategory(products, "masala")
	require.Len(t, masala, 2)
	assert.Equal(t, "1", masala[0].ID)
	assert.Equal(t, "3", masala[1].ID)

	assert.Empty(t, FilterByCategory(products, "green"))
}
