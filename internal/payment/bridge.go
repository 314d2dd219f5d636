package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

var ErrInvalidSession = errors.New("payment session is incomplete")

type Poster interface {
	Post(ctx context.Context, path string, in, out any, opts ...api.RequestOption) error
}

type Config struct {
	StoreName   string
	Description string
	ThemeColor  string
}

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type Theme struct {
	Color string `json:"color,omitempty"`
}

// WidgetOptions is everything the hosted payment widget needs to open.
type WidgetOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	Theme       Theme             `json:"theme"`
}

// Widget is the external payment widget.
type Widget interface {
	Open(ctx context.Context, opts WidgetOptions) error
}

// DeferredWidget records the options instead of opening anything. The HTTP
// gateway hands them to the browser, which hosts the real widget.
type DeferredWidget struct {
	Options *WidgetOptions
}

func (w *DeferredWidget) Open(_ context.Context, opts WidgetOptions) error {
	w.Options = &opts
	return nil
}

type Completion struct {
	Result      domain.PaymentResult `json:"result"`
	CompletedAt time.Time            `json:"completed_at"`
}

// CompletionNotifier is told about every completed widget payment.
type CompletionNotifier interface {
	PaymentCompleted(ctx context.Context, c Completion) error
}

type Bridge struct {
	backend  Poster
	cfg      Config
	notifier CompletionNotifier
	log      *zap.Logger
	now      func() time.Time
}

func NewBridge(backend Poster, cfg Config, notifier CompletionNotifier, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &Bridge{
		backend:  backend,
		cfg:      cfg,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

type createOrderRequest struct {
	Items []domain.OrderItem `json:"items"`
}

// CreateSession asks the backend for a payment-gateway order covering lines.
// The request carries cookies. There is no retry.
func (b *Bridge) CreateSession(ctx context.Context, lines []domain.CartLine) (*domain.PaymentSession, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{ProductID: l.Product.ID, Quantity: l.Quantity})
	}

	var session domain.PaymentSession
	err := b.backend.Post(ctx, "/payments/create-order", createOrderRequest{Items: items}, &session, api.WithCredentials())
	if err != nil {
		return nil, fmt.Errorf("create payment order: %w", err)
	}
	if session.KeyID == "" || session.OrderID == "" {
		return nil, ErrInvalidSession
	}
	return &session, nil
}

// Open hands the session to the widget. The customer fills the prefill block.
func (b *Bridge) Open(ctx context.Context, session *domain.PaymentSession, customer domain.CustomerInfo, widget Widget) (*WidgetOptions, error) {
	opts := WidgetOptions{
		Key:         session.KeyID,
		Amount:      session.Amount,
		Currency:    session.Currency,
		Name:        b.cfg.StoreName,
		Description: b.cfg.Description,
		OrderID:     session.OrderID,
		Prefill: Prefill{
			Name:    customer.Name,
			Email:   customer.Email,
			Contact: customer.Phone,
		},
		Theme: Theme{Color: b.cfg.ThemeColor},
	}
	if customer.Address != "" {
		opts.Notes = map[string]string{"address": customer.Address}
	}

	if err := widget.Open(ctx, opts); err != nil {
		return nil, fmt.Errorf("open payment widget: %w", err)
	}
	return &opts, nil
}

// Complete handles the widget's completion callback and returns the
// confirmation shown to the user. It does not create an order or touch the
// cart; reconciliation is left to whoever listens to the notifier.
func (b *Bridge) Complete(ctx context.Context, result domain.PaymentResult) string {
	c := Completion{Result: result, CompletedAt: b.now().UTC()}
	if err := b.notifier.PaymentCompleted(ctx, c); err != nil {
		b.log.Error("payment completion notification failed",
			zap.String("payment_id", result.PaymentID), zap.String("order_id", result.OrderID), zap.Error(err))
	}
	return ConfirmationMessage(result.PaymentID)
}

func ConfirmationMessage(paymentID string) string {
	return fmt.Sprintf("Payment successful. Payment ID: %s", paymentID)
}
