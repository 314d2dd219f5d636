package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

// Recorder counts checkout outcomes.
type Recorder interface {
	OrderSubmitted(result string)
	PaymentSession(result string)
	PaymentCompleted()
}

type nopRecorder struct{}

func (nopRecorder) OrderSubmitted(string) {}
func (nopRecorder) PaymentSession(string) {}
func (nopRecorder) PaymentCompleted()     {}

type CheckoutHandler struct {
	sessions *Sessions
	orders   checkout.OrderSubmitter
	recorder Recorder
	timeout  time.Duration
	log      *zap.Logger
}

func NewCheckoutHandler(sessions *Sessions, orders checkout.OrderSubmitter, recorder Recorder, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutHandler{
		sessions: sessions,
		orders:   orders,
		recorder: recorder,
		timeout:  timeout,
		log:      log,
	}
}

type CustomerRequestDTO struct {
	CustomerInfo *domain.CustomerInfo `json:"customer_info"`
	Notes        *string              `json:"notes"`
}

type SubmitResponseDTO struct {
	Order    *domain.OrderSuccess `json:"order"`
	Checkout CheckoutResponseDTO  `json:"checkout"`
}

type PaymentResponseDTO struct {
	Widget   *payment.WidgetOptions `json:"widget"`
	Checkout CheckoutResponseDTO    `json:"checkout"`
}

type PaymentCompleteResponseDTO struct {
	Message  string              `json:"message"`
	Checkout CheckoutResponseDTO `json:"checkout"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	c, _, err := h.sessions.View(r.Context(), getSessionID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_error", "failed to load session")
		return
	}
	respondJSON(w, http.StatusOK, checkoutView(c))
}

// POST /api/v1/checkout/open
func (h *CheckoutHandler) OpenCheckout(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, (*checkout.Coordinator).ProceedToCheckout)
}

// POST /api/v1/checkout/close
// A submission still waiting on the backend is cancelled and its outcome dropped.
func (h *CheckoutHandler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	id := getSessionID(r.Context())
	h.update(w, r, func(c *checkout.Coordinator) error {
		if err := c.CloseCheckout(); err != nil {
			return err
		}
		if h.sessions.CancelInFlight(id) {
			h.log.Info("in-flight checkout cancelled", zap.String("session_id", id))
		}
		return nil
	})
}

// POST /api/v1/checkout/dismiss
func (h *CheckoutHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, (*checkout.Coordinator).Dismiss)
}

// PUT /api/v1/checkout/customer
func (h *CheckoutHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.update(w, r, func(c *checkout.Coordinator) error {
		if req.CustomerInfo != nil {
			c.UpdateCustomer(*req.CustomerInfo)
		}
		if req.Notes != nil {
			c.SetNotes(*req.Notes)
		}
		return nil
	})
}

// POST /api/v1/checkout/orders
func (h *CheckoutHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	id := getSessionID(r.Context())

	var attempt checkout.Attempt
	_, _, err := h.sessions.Update(r.Context(), id, func(c *checkout.Coordinator, _ *session.Session) error {
		var err error
		attempt, err = c.BeginSubmit(checkout.AttemptOrder)
		return err
	})
	if err != nil {
		if errors.Is(err, checkout.ErrMissingRequiredFields) {
			h.recorder.OrderSubmitted(metrics.ResultRejected)
		}
		handleCoordinatorError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	release := h.sessions.Track(id, attempt.ID, cancel)
	res, callErr := h.orders.CreateOrder(ctx, attempt.Request)
	release()
	cancel()

	// the outcome is stored even if the caller went away
	c, _, err := h.sessions.Update(context.WithoutCancel(r.Context()), id, func(c *checkout.Coordinator, _ *session.Session) error {
		return c.FinishOrder(attempt, res, callErr)
	})
	if err != nil {
		if errors.Is(err, checkout.ErrStaleAttempt) {
			h.recorder.OrderSubmitted(metrics.ResultStale)
			h.log.Info("discarded stale order result", zap.String("session_id", id), zap.Uint64("attempt", attempt.ID))
		}
		handleCoordinatorError(w, err)
		return
	}

	if c.State() != checkout.StateSuccess {
		h.recorder.OrderSubmitted(metrics.ResultFailure)
		if callErr == nil {
			respondError(w, http.StatusBadGateway, "backend_error", c.Message())
			return
		}
		handleBackendError(w, callErr, c.Message())
		return
	}

	h.recorder.OrderSubmitted(metrics.ResultSuccess)
	respondJSON(w, http.StatusCreated, SubmitResponseDTO{Order: c.Success(), Checkout: checkoutView(c)})
}

// POST /api/v1/checkout/payment
// Creates the payment-gateway order and returns the options the browser
// opens the widget with.
func (h *CheckoutHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	if h.sessions.payments == nil {
		handleCoordinatorError(w, checkout.ErrNoPaymentBridge)
		return
	}
	id := getSessionID(r.Context())

	var (
		attempt checkout.Attempt
		opener  *checkout.Coordinator
	)
	_, _, err := h.sessions.Update(r.Context(), id, func(c *checkout.Coordinator, _ *session.Session) error {
		var err error
		attempt, err = c.BeginSubmit(checkout.AttemptPayment)
		opener = c
		return err
	})
	if err != nil {
		if errors.Is(err, checkout.ErrMissingRequiredFields) {
			h.recorder.PaymentSession(metrics.ResultRejected)
		}
		handleCoordinatorError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	release := h.sessions.Track(id, attempt.ID, cancel)
	opts, callErr := opener.OpenPayment(ctx, attempt, &payment.DeferredWidget{})
	release()
	cancel()

	c, _, err := h.sessions.Update(context.WithoutCancel(r.Context()), id, func(c *checkout.Coordinator, _ *session.Session) error {
		return c.FinishPayment(attempt, opts, callErr)
	})
	if err != nil {
		if errors.Is(err, checkout.ErrStaleAttempt) {
			h.recorder.PaymentSession(metrics.ResultStale)
		}
		handleCoordinatorError(w, err)
		return
	}

	if callErr != nil {
		h.recorder.PaymentSession(metrics.ResultFailure)
		handleBackendError(w, callErr, c.Message())
		return
	}

	h.recorder.PaymentSession(metrics.ResultSuccess)
	respondJSON(w, http.StatusCreated, PaymentResponseDTO{Widget: opts, Checkout: checkoutView(c)})
}

// POST /api/v1/checkout/payment/complete
func (h *CheckoutHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentResult
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.PaymentID == "" {
		respondError(w, http.StatusBadRequest, "missing_payment_id", "razorpay_payment_id is required")
		return
	}

	if h.sessions.payments == nil {
		handleCoordinatorError(w, checkout.ErrNoPaymentBridge)
		return
	}

	// the notifier runs outside the session lock
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	msg := h.sessions.payments.Complete(ctx, req)
	cancel()

	c, _, err := h.sessions.Update(context.WithoutCancel(r.Context()), getSessionID(r.Context()), func(c *checkout.Coordinator, _ *session.Session) error {
		c.AcknowledgePayment(msg)
		return nil
	})
	if err != nil {
		handleCoordinatorError(w, err)
		return
	}

	h.recorder.PaymentCompleted()
	respondJSON(w, http.StatusOK, PaymentCompleteResponseDTO{Message: msg, Checkout: checkoutView(c)})
}

// POST /api/v1/checkout/payment/dismiss
func (h *CheckoutHandler) DismissPayment(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, (*checkout.Coordinator).DismissPayment)
}

func (h *CheckoutHandler) update(w http.ResponseWriter, r *http.Request, fn func(c *checkout.Coordinator) error) {
	c, _, err := h.sessions.Update(r.Context(), getSessionID(r.Context()), func(c *checkout.Coordinator, _ *session.Session) error {
		return fn(c)
	})
	if err != nil {
		handleCoordinatorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, checkoutView(c))
}
