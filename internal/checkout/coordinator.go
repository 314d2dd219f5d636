package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultOrderFailure   = "Failed to place order. Please try again."
	DefaultPaymentFailure = "Failed to open payment checkout."
)

type OrderSubmitter interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderSuccess, error)
}

type PaymentBridge interface {
	CreateSession(ctx context.Context, lines []domain.CartLine) (*domain.PaymentSession, error)
	Open(ctx context.Context, session *domain.PaymentSession, customer domain.CustomerInfo, widget payment.Widget) (*payment.WidgetOptions, error)
	Complete(ctx context.Context, result domain.PaymentResult) string
}

type Options struct {
	// TrimRequired makes whitespace-only name, phone or address count as missing.
	TrimRequired   bool
	OrderFailure   string
	PaymentFailure string
	Logger         *zap.Logger
}

// Coordinator drives one visitor's cart and checkout flow. It is safe for
// concurrent use; backend calls run without holding the lock, and their
// results are dropped if the checkout was closed in the meantime.
type Coordinator struct {
	mu       sync.Mutex
	cart     *cart.Store
	orders   OrderSubmitter
	payments PaymentBridge
	opts     Options
	log      *zap.Logger

	state    State
	customer domain.CustomerInfo
	notes    string
	message  string
	success  *domain.OrderSuccess
	widget   *payment.WidgetOptions
	attempt  uint64
	cancel   context.CancelFunc
}

func NewCoordinator(orders OrderSubmitter, payments PaymentBridge, opts Options) *Coordinator {
	if opts.OrderFailure == "" {
		opts.OrderFailure = DefaultOrderFailure
	}
	if opts.PaymentFailure == "" {
		opts.PaymentFailure = DefaultPaymentFailure
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		cart:     cart.NewStore(),
		orders:   orders,
		payments: payments,
		opts:     opts,
		log:      log,
		state:    StateBrowsing,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

func (c *Coordinator) Success() *domain.OrderSuccess {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.success
}

func (c *Coordinator) WidgetOptions() *payment.WidgetOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.widget
}

func (c *Coordinator) Customer() domain.CustomerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customer
}

func (c *Coordinator) Notes() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notes
}

// cart

func (c *Coordinator) AddToCart(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Add(p)
}

func (c *Coordinator) RemoveFromCart(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Remove(productID)
}

func (c *Coordinator) SetQuantity(productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.SetQuantity(productID, quantity)
}

func (c *Coordinator) IncrementQuantity(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Increment(productID)
}

func (c *Coordinator) DecrementQuantity(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Decrement(productID)
}

func (c *Coordinator) CartLines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Lines()
}

func (c *Coordinator) CartTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Total()
}

func (c *Coordinator) CartLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Len()
}

// navigation

func (c *Coordinator) OpenCart() error {
	return c.transition(StateCartOpen)
}

func (c *Coordinator) CloseCart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCartOpen {
		return fmt.Errorf("%w: close cart from %s", ErrIllegalTransition, c.state)
	}
	c.state = StateBrowsing
	return nil
}

func (c *Coordinator) ProceedToCheckout() error {
	return c.transition(StateCheckoutOpen)
}

// CloseCheckout leaves the checkout from any checkout state. A submission in
// flight is cancelled and its result will be discarded.
func (c *Coordinator) CloseCheckout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CheckoutVisible() {
		return fmt.Errorf("%w: close checkout from %s", ErrIllegalTransition, c.state)
	}
	c.invalidateAttempt()
	c.state = StateBrowsing
	c.message = ""
	c.widget = nil
	return nil
}

// Dismiss closes the order confirmation.
func (c *Coordinator) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSuccess {
		return fmt.Errorf("%w: dismiss from %s", ErrIllegalTransition, c.state)
	}
	c.state = StateBrowsing
	c.success = nil
	c.message = ""
	return nil
}

func (c *Coordinator) transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanTransitionTo(c.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.state, to)
	}
	c.state = to
	return nil
}

// form

// UpdateCustomer replaces the whole customer value. Editing after a failed
// submission returns the form to its plain open state.
func (c *Coordinator) UpdateCustomer(info domain.CustomerInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customer = info
	c.clearFailure()
}

func (c *Coordinator) SetNotes(notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = notes
	c.clearFailure()
}

func (c *Coordinator) clearFailure() {
	if c.state == StateFailed {
		c.state = StateCheckoutOpen
		c.message = ""
	}
}

func (c *Coordinator) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmit()
}

func (c *Coordinator) canSubmit() bool {
	present := func(s string) bool {
		if c.opts.TrimRequired {
			s = strings.TrimSpace(s)
		}
		return s != ""
	}
	return present(c.customer.Name) && present(c.customer.Phone) && present(c.customer.Address)
}

// attempts

type AttemptKind string

const (
	AttemptOrder   AttemptKind = "order"
	AttemptPayment AttemptKind = "payment"
)

// Attempt is one submission. It carries everything the backend call needs so
// the call can run without touching the coordinator.
type Attempt struct {
	ID       uint64
	Kind     AttemptKind
	Request  domain.OrderRequest
	Lines    []domain.CartLine
	Customer domain.CustomerInfo
}

// BeginSubmit validates the form and moves to the in-flight state for kind.
// Failing validation leaves every piece of state untouched.
func (c *Coordinator) BeginSubmit(kind AttemptKind) (Attempt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.begin(kind)
}

func (c *Coordinator) begin(kind AttemptKind) (Attempt, error) {
	if !c.canSubmit() {
		return Attempt{}, ErrMissingRequiredFields
	}
	target := StateSubmitting
	if kind == AttemptPayment {
		target = StatePaymentPending
	}
	if !CanTransitionTo(c.state, target) {
		return Attempt{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.state, target)
	}

	c.attempt++
	c.state = target
	c.message = ""
	return Attempt{
		ID:   c.attempt,
		Kind: kind,
		Request: domain.OrderRequest{
			CustomerInfo: c.customer,
			Items:        c.cart.Items(),
			Notes:        c.notes,
		},
		Lines:    c.cart.Lines(),
		Customer: c.customer,
	}, nil
}

func (c *Coordinator) current(a Attempt, expected State) bool {
	return a.ID == c.attempt && c.state == expected
}

// FinishOrder applies the outcome of a direct order submission.
func (c *Coordinator) FinishOrder(a Attempt, res *domain.OrderSuccess, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(a, StateSubmitting) {
		return ErrStaleAttempt
	}
	c.cancel = nil

	if err == nil && res == nil {
		err = errEmptyOrderResponse
	}
	if err != nil {
		c.state = StateFailed
		c.message = api.UserMessage(err, c.opts.OrderFailure)
		c.log.Warn("order submission failed", zap.Uint64("attempt", a.ID), zap.Error(err))
		return nil
	}

	c.success = res
	c.message = res.Message
	c.cart.Clear()
	c.customer = domain.CustomerInfo{}
	c.notes = ""
	c.state = StateSuccess
	c.log.Info("order placed", zap.String("order_id", res.OrderID), zap.Uint64("attempt", a.ID))
	return nil
}

// FinishPayment applies the outcome of creating a payment session and opening
// the widget. The cart is never touched.
func (c *Coordinator) FinishPayment(a Attempt, opts *payment.WidgetOptions, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(a, StatePaymentPending) {
		return ErrStaleAttempt
	}
	c.cancel = nil

	if err != nil {
		c.state = StateFailed
		c.message = api.UserMessage(err, c.opts.PaymentFailure)
		c.log.Warn("payment session failed", zap.Uint64("attempt", a.ID), zap.Error(err))
		return nil
	}

	c.widget = opts
	c.state = StatePaymentOpen
	return nil
}

func (c *Coordinator) invalidateAttempt() {
	c.attempt++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// scoped derives the context of an attempt; CloseCheckout cancels it.
func (c *Coordinator) scoped(ctx context.Context, a Attempt) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if a.ID == c.attempt {
		c.cancel = cancel
	}
	c.mu.Unlock()
	return ctx, cancel
}

// SubmitDirect places the order through the order endpoint.
func (c *Coordinator) SubmitDirect(ctx context.Context) (*domain.OrderSuccess, error) {
	a, err := c.BeginSubmit(AttemptOrder)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.scoped(ctx, a)
	defer cancel()

	res, err := c.orders.CreateOrder(ctx, a.Request)
	if ferr := c.FinishOrder(a, res, err); ferr != nil {
		return nil, ferr
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SubmitViaPayment hands the cart to the payment bridge instead of placing the
// order directly. Nothing opens when the session cannot be created.
func (c *Coordinator) SubmitViaPayment(ctx context.Context, widget payment.Widget) (*payment.WidgetOptions, error) {
	if c.payments == nil {
		return nil, ErrNoPaymentBridge
	}
	a, err := c.BeginSubmit(AttemptPayment)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.scoped(ctx, a)
	defer cancel()

	opts, err := c.OpenPayment(ctx, a, widget)
	if ferr := c.FinishPayment(a, opts, err); ferr != nil {
		return nil, ferr
	}
	if err != nil {
		return nil, err
	}
	return opts, nil
}

// OpenPayment runs the backend half of a payment attempt without touching
// coordinator state.
func (c *Coordinator) OpenPayment(ctx context.Context, a Attempt, widget payment.Widget) (*payment.WidgetOptions, error) {
	if c.payments == nil {
		return nil, ErrNoPaymentBridge
	}
	session, err := c.payments.CreateSession(ctx, a.Lines)
	if err != nil {
		return nil, err
	}
	return c.payments.Open(ctx, session, a.Customer, widget)
}

// CompletePayment handles the widget's completion callback and returns the
// confirmation for the user. The payment is acknowledged whatever the current
// state, but no order is created and the cart is kept.
func (c *Coordinator) CompletePayment(ctx context.Context, result domain.PaymentResult) (string, error) {
	if c.payments == nil {
		return "", ErrNoPaymentBridge
	}
	msg := c.payments.Complete(ctx, result)
	c.AcknowledgePayment(msg)
	return msg, nil
}

// AcknowledgePayment records a completion the bridge has already handled.
func (c *Coordinator) AcknowledgePayment(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePaymentOpen {
		c.state = StateCheckoutOpen
		c.widget = nil
	}
	c.message = msg
}

// DismissPayment is called when the widget is closed without paying.
func (c *Coordinator) DismissPayment() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaymentOpen {
		return fmt.Errorf("%w: dismiss payment from %s", ErrIllegalTransition, c.state)
	}
	c.state = StateCheckoutOpen
	c.widget = nil
	return nil
}
