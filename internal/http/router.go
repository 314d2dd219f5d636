package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SessionTTL         time.Duration
	SecureCookies      bool
}

type Handlers struct {
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Sessions *Sessions
	// Ready is pinged by /ready; nil skips the check.
	Ready   Pinger
	Metrics http.Handler
	Latency HTTPObserver
}

func NewRouter(cfg RouterConfig, hs Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log, hs.Latency))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if hs.Ready != nil {
			if err := hs.Ready.Ping(r.Context()); err != nil {
				log.Warn("readiness check failed", zap.Error(err))
				respondError(w, http.StatusServiceUnavailable, "not_ready", "backend unavailable")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if hs.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", hs.Metrics)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(hs.Sessions.manager, cfg.SessionTTL, cfg.SecureCookies))

		r.Get("/catalog", hs.Catalog.GetCatalog)
		r.Get("/products/{product_id}", hs.Catalog.GetProduct)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", hs.Cart.GetCart)
			r.Post("/open", hs.Cart.OpenCart)
			r.Post("/close", hs.Cart.CloseCart)
			r.Post("/items", hs.Cart.AddItem)
			r.Put("/items/{product_id}", hs.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", hs.Cart.RemoveItem)
			r.Post("/items/{product_id}/increment", hs.Cart.IncrementQuantity)
			r.Post("/items/{product_id}/decrement", hs.Cart.DecrementQuantity)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", hs.Checkout.GetCheckout)
			r.Post("/open", hs.Checkout.OpenCheckout)
			r.Post("/close", hs.Checkout.CloseCheckout)
			r.Post("/dismiss", hs.Checkout.Dismiss)
			r.Put("/customer", hs.Checkout.UpdateCustomer)
			r.Post("/orders", hs.Checkout.SubmitOrder)
			r.Post("/payment", hs.Checkout.StartPayment)
			r.Post("/payment/complete", hs.Checkout.CompletePayment)
			r.Post("/payment/dismiss", hs.Checkout.DismissPayment)
		})

		r.Get("/orders/{order_id}", hs.Orders.GetOrder)
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}
