package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	backend, err := api.NewClient(srv.URL + "/api")
	require.NoError(t, err)
	return NewClient(backend)
}

func TestCreateOrder_Success(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)

		var req domain.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Asha", req.CustomerInfo.Name)
		assert.Equal(t, []domain.OrderItem{{ProductID: "p1", Quantity: 2}}, req.Items)
		assert.Equal(t, "ring twice", req.Notes)

		io.WriteString(w, `{"message":"Order placed successfully","order_id":"ord_1","total_amount":200}`)
	})

	res, err := c.CreateOrder(context.Background(), domain.OrderRequest{
		CustomerInfo: domain.CustomerInfo{Name: "Asha", Phone: "999", Address: "MG Road"},
		Items:        []domain.OrderItem{{ProductID: "p1", Quantity: 2}},
		Notes:        "ring twice",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord_1", res.OrderID)
	assert.Equal(t, "Order placed successfully", res.Message)
	require.NotNil(t, res.TotalAmount)
	assert.True(t, decimal.NewFromInt(200).Equal(*res.TotalAmount))
}

func TestCreateOrder_EmptyItemsSentAsArray(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"customer_info":{"name":"A","phone":"1","email":"","address":"B"},"items":[],"notes":""}`, string(body))
		io.WriteString(w, `{"message":"ok","order_id":"ord_2"}`)
	})

	res, err := c.CreateOrder(context.Background(), domain.OrderRequest{
		CustomerInfo: domain.CustomerInfo{Name: "A", Phone: "1", Address: "B"},
	})
	require.NoError(t, err)
	assert.Nil(t, res.TotalAmount)
}

func TestCreateOrder_BackendDetail(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Out of stock"}`)
	})

	_, err := c.CreateOrder(context.Background(), domain.OrderRequest{})
	require.Error(t, err)
	assert.Equal(t, "Out of stock", api.UserMessage(err, "generic"))
}

func TestGetOrder(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/ord_1", r.URL.Path)
		io.WriteString(w, `{"id":"ord_1","customer_info":{"name":"Asha"},"items":[{"product_id":"p1","quantity":1}],"total_amount":250,"status":"pending","order_date":"2026-10-01T10:00:00Z"}`)
	})

	o, err := c.GetOrder(context.Background(), "ord_1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, "Asha", o.CustomerInfo.Name)
	assert.Len(t, o.Items, 1)
	assert.Equal(t, 2026, o.OrderDate.Year())
}

func TestGetOrder_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"Order not found"}`)
	})

	_, err := c.GetOrder(context.Background(), "missing")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Order not found", apiErr.Detail)
}
