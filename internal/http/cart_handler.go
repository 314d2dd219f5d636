package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	catalog  Catalog
	sessions *Sessions
	timeout  time.Duration
}

func NewCartHandler(c Catalog, sessions *Sessions, timeout time.Duration) *CartHandler {
	return &CartHandler{
		catalog:  c,
		sessions: sessions,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, _, err := h.sessions.View(r.Context(), getSessionID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_error", "failed to load session")
		return
	}
	respondJSON(w, http.StatusOK, cartView(c))
}

// POST /api/v1/cart/items
// The product is resolved from the catalog so prices never come from the client.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		handleBackendError(w, err, msgProductFailure)
		return
	}

	h.update(w, r, http.StatusCreated, func(c *checkout.Coordinator) error {
		c.AddToCart(*product)
		return nil
	})
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	h.update(w, r, http.StatusOK, func(c *checkout.Coordinator) error {
		return c.SetQuantity(productID, *req.Quantity)
	})
}

// POST /api/v1/cart/items/{product_id}/increment
func (h *CartHandler) IncrementQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	h.update(w, r, http.StatusOK, func(c *checkout.Coordinator) error {
		c.IncrementQuantity(productID)
		return nil
	})
}

// POST /api/v1/cart/items/{product_id}/decrement
func (h *CartHandler) DecrementQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	h.update(w, r, http.StatusOK, func(c *checkout.Coordinator) error {
		c.DecrementQuantity(productID)
		return nil
	})
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	h.update(w, r, http.StatusOK, func(c *checkout.Coordinator) error {
		c.RemoveFromCart(productID)
		return nil
	})
}

// POST /api/v1/cart/open
func (h *CartHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, http.StatusOK, (*checkout.Coordinator).OpenCart)
}

// POST /api/v1/cart/close
func (h *CartHandler) CloseCart(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, http.StatusOK, (*checkout.Coordinator).CloseCart)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request, status int, fn func(c *checkout.Coordinator) error) {
	c, _, err := h.sessions.Update(r.Context(), getSessionID(r.Context()), func(c *checkout.Coordinator, _ *session.Session) error {
		return fn(c)
	})
	if err != nil {
		handleCoordinatorError(w, err)
		return
	}
	respondJSON(w, status, cartView(c))
}

// handleCoordinatorError maps state machine errors. Anything else is a
// session store failure.
func handleCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNegativeQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not be negative")
	case errors.Is(err, checkout.ErrMissingRequiredFields):
		respondError(w, http.StatusUnprocessableEntity, "missing_required_fields", "name, phone and address are required")
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrStaleAttempt):
		respondError(w, http.StatusConflict, "checkout_closed", "checkout was closed before the request finished")
	case errors.Is(err, checkout.ErrNoPaymentBridge):
		respondError(w, http.StatusNotImplemented, "payments_disabled", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "session_error", "failed to update session")
	}
}
