package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const (
	msgCatalogFailure = "Failed to load products. Please try again."
	msgProductFailure = "Failed to load product."
)

type Catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	Ping(ctx context.Context) error
}

type CatalogHandler struct {
	catalog  Catalog
	sessions *Sessions
	timeout  time.Duration
}

func NewCatalogHandler(c Catalog, sessions *Sessions, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog:  c,
		sessions: sessions,
		timeout:  timeout,
	}
}

// GET /api/v1/catalog?category=c
// Without a category the visitor's last selection is used.
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		products   []domain.Product
		categories []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = h.catalog.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = h.catalog.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		handleBackendError(w, err, msgCatalogFailure)
		return
	}

	selected := r.URL.Query().Get("category")
	id := getSessionID(r.Context())
	if selected == "" {
		_, sess, err := h.sessions.View(r.Context(), id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "session_error", "failed to load session")
			return
		}
		selected = sess.Category
	} else {
		_, _, err := h.sessions.Update(r.Context(), id, func(_ *checkout.Coordinator, sess *session.Session) error {
			sess.Category = selected
			return nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "session_error", "failed to save session")
			return
		}
	}
	if selected == "" {
		selected = catalog.AllCategories
	}

	respondJSON(w, http.StatusOK, CatalogResponseDTO{
		Products:   catalog.FilterByCategory(products, selected),
		Categories: categories,
		Selected:   selected,
	})
}

// GET /api/v1/products/{product_id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "missing_product_id", "product_id is required")
		return
	}

	p, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		handleBackendError(w, err, msgProductFailure)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
