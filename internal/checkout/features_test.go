package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cucumber/godog"
	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/shopspring/decimal"
)

// fakeBackend answers the order and payment endpoints with canned responses.
type fakeBackend struct {
	mu sync.Mutex

	orderStatus int
	orderBody   string
	orderReqs   []domain.OrderRequest

	paymentStatus int
	paymentBody   string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.URL.Path {
	case "/api/orders":
		var req domain.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.orderReqs = append(b.orderReqs, req)
		w.WriteHeader(b.orderStatus)
		fmt.Fprint(w, b.orderBody)
	case "/api/payments/create-order":
		w.WriteHeader(b.paymentStatus)
		fmt.Fprint(w, b.paymentBody)
	default:
		http.NotFound(w, r)
	}
}

type checkoutTestContext struct {
	srv      *httptest.Server
	backend  *fakeBackend
	coord    *checkout.Coordinator
	products map[string]domain.Product
	widget   *payment.DeferredWidget
	err      error
}

func (c *checkoutTestContext) reset() error {
	if c.srv != nil {
		c.srv.Close()
	}
	c.backend = &fakeBackend{
		orderStatus:   http.StatusOK,
		orderBody:     `{"order_id":"ord_default","message":"Order placed"}`,
		paymentStatus: http.StatusOK,
		paymentBody:   `{"key_id":"rzp_test","amount":100,"currency":"INR","order_id":"order_default"}`,
	}
	c.srv = httptest.NewServer(c.backend)

	client, err := api.NewClient(c.srv.URL + "/api")
	if err != nil {
		return err
	}
	bridge := payment.NewBridge(client, payment.Config{StoreName: "Mangal Chai"}, nil, nil)
	c.coord = checkout.NewCoordinator(orders.NewClient(client), bridge, checkout.Options{})
	c.products = map[string]domain.Product{}
	c.widget = &payment.DeferredWidget{}
	c.err = nil
	return nil
}

// Given steps

func (c *checkoutTestContext) theCatalogHasProductPriced(id string, price int) error {
	c.products[id] = domain.Product{ID: id, Name: id, Price: decimal.NewFromInt(int64(price))}
	return nil
}

func (c *checkoutTestContext) theBackendAcceptsOrdersWithID(id string) error {
	c.backend.orderStatus = http.StatusOK
	c.backend.orderBody = fmt.Sprintf(`{"order_id":%q,"message":"Order placed successfully"}`, id)
	return nil
}

func (c *checkoutTestContext) theBackendRejectsOrders(status int, detail string) error {
	c.backend.orderStatus = status
	c.backend.orderBody = fmt.Sprintf(`{"detail":%q}`, detail)
	return nil
}

func (c *checkoutTestContext) theBackendRejectsPaymentSessions(status int) error {
	c.backend.paymentStatus = status
	c.backend.paymentBody = ""
	return nil
}

func (c *checkoutTestContext) theBackendCreatesPaymentSession(orderID string, amount int) error {
	c.backend.paymentStatus = http.StatusOK
	c.backend.paymentBody = fmt.Sprintf(`{"key_id":"rzp_test","amount":%d,"currency":"INR","order_id":%q}`, amount, orderID)
	return nil
}

// When steps

func (c *checkoutTestContext) iAddProductToTheCart(id string) error {
	p, ok := c.products[id]
	if !ok {
		return fmt.Errorf("unknown product %q", id)
	}
	c.coord.AddToCart(p)
	return nil
}

func (c *checkoutTestContext) iSetTheQuantityOfProductTo(id string, qty int) error {
	return c.coord.SetQuantity(id, qty)
}

func (c *checkoutTestContext) iOpenTheCheckout() error {
	if err := c.coord.OpenCart(); err != nil {
		return err
	}
	return c.coord.ProceedToCheckout()
}

func (c *checkoutTestContext) iFillInCustomer(name, phone, address string) error {
	c.coord.UpdateCustomer(domain.CustomerInfo{Name: name, Phone: phone, Address: address})
	return nil
}

func (c *checkoutTestContext) iSubmitTheOrder() error {
	_, c.err = c.coord.SubmitDirect(context.Background())
	return nil
}

func (c *checkoutTestContext) iPayWithTheWidget() error {
	_, c.err = c.coord.SubmitViaPayment(context.Background(), c.widget)
	return nil
}

func (c *checkoutTestContext) theWidgetReportsPayment(paymentID string) error {
	_, err := c.coord.CompletePayment(context.Background(), domain.PaymentResult{PaymentID: paymentID})
	return err
}

// Then steps

func (c *checkoutTestContext) theCartHasLines(n int) error {
	if got := c.coord.CartLen(); got != n {
		return fmt.Errorf("expected %d cart lines, got %d", n, got)
	}
	return nil
}

func (c *checkoutTestContext) theCartHasOfProduct(qty int, id string) error {
	for _, l := range c.coord.CartLines() {
		if l.Product.ID == id {
			if l.Quantity != qty {
				return fmt.Errorf("expected quantity %d of %s, got %d", qty, id, l.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("product %s is not in the cart", id)
}

func (c *checkoutTestContext) theCartTotalIs(total int) error {
	if got := c.coord.CartTotal(); !got.Equal(decimal.NewFromInt(int64(total))) {
		return fmt.Errorf("expected total %d, got %s", total, got)
	}
	return nil
}

func (c *checkoutTestContext) theOrderCannotBeSubmitted() error {
	if c.coord.CanSubmit() {
		return errors.New("expected the order to be blocked")
	}
	return nil
}

func (c *checkoutTestContext) theSubmissionIsRejectedForMissingFields() error {
	if !errors.Is(c.err, checkout.ErrMissingRequiredFields) {
		return fmt.Errorf("expected missing fields error, got %v", c.err)
	}
	return nil
}

func (c *checkoutTestContext) theBackendReceivedOrderRequests(n int) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if got := len(c.backend.orderReqs); got != n {
		return fmt.Errorf("expected %d order requests, got %d", n, got)
	}
	return nil
}

func (c *checkoutTestContext) theBackendReceivedAnOrderWithItems(n int) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if len(c.backend.orderReqs) != 1 {
		return fmt.Errorf("expected one order request, got %d", len(c.backend.orderReqs))
	}
	req := c.backend.orderReqs[0]
	if req.Items == nil || len(req.Items) != n {
		return fmt.Errorf("expected %d items, got %v", n, req.Items)
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutStateIs(state string) error {
	if got := c.coord.State(); got != checkout.State(state) {
		return fmt.Errorf("expected state %s, got %s (message %q)", state, got, c.coord.Message())
	}
	return nil
}

func (c *checkoutTestContext) theConfirmationShowsOrder(id string) error {
	s := c.coord.Success()
	if s == nil || s.OrderID != id {
		return fmt.Errorf("expected confirmation for %s, got %+v", id, s)
	}
	return nil
}

func (c *checkoutTestContext) theFormIsEmpty() error {
	if c.coord.Customer() != (domain.CustomerInfo{}) {
		return fmt.Errorf("expected empty form, got %+v", c.coord.Customer())
	}
	return nil
}

func (c *checkoutTestContext) theFormStillHoldsName(name string) error {
	if got := c.coord.Customer().Name; got != name {
		return fmt.Errorf("expected name %q, got %q", name, got)
	}
	return nil
}

func (c *checkoutTestContext) theUserSees(msg string) error {
	if got := c.coord.Message(); got != msg {
		return fmt.Errorf("expected message %q, got %q", msg, got)
	}
	return nil
}

func (c *checkoutTestContext) noWidgetIsOpened() error {
	if c.widget.Options != nil {
		return errors.New("widget was opened")
	}
	return nil
}

func (c *checkoutTestContext) theWidgetOpensForOrder(orderID string) error {
	if c.widget.Options == nil {
		return fmt.Errorf("widget not opened: %v", c.err)
	}
	if c.widget.Options.OrderID != orderID {
		return fmt.Errorf("expected widget for %s, got %s", orderID, c.widget.Options.OrderID)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.srv.Close()
		tc.srv = nil
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog has product "([^"]*)" priced (\d+)$`, tc.theCatalogHasProductPriced)
	ctx.Step(`^the backend accepts orders with id "([^"]*)"$`, tc.theBackendAcceptsOrdersWithID)
	ctx.Step(`^the backend rejects orders with status (\d+) and detail "([^"]*)"$`, tc.theBackendRejectsOrders)
	ctx.Step(`^the backend rejects payment sessions with status (\d+)$`, tc.theBackendRejectsPaymentSessions)
	ctx.Step(`^the backend creates payment session "([^"]*)" for (\d+) paise$`, tc.theBackendCreatesPaymentSession)

	// When steps
	ctx.Step(`^I add product "([^"]*)" to the cart$`, tc.iAddProductToTheCart)
	ctx.Step(`^I set the quantity of product "([^"]*)" to (-?\d+)$`, tc.iSetTheQuantityOfProductTo)
	ctx.Step(`^I open the checkout$`, tc.iOpenTheCheckout)
	ctx.Step(`^I fill in name "([^"]*)", phone "([^"]*)" and address "([^"]*)"$`, tc.iFillInCustomer)
	ctx.Step(`^I submit the order$`, tc.iSubmitTheOrder)
	ctx.Step(`^I pay with the widget$`, tc.iPayWithTheWidget)
	ctx.Step(`^the widget reports payment "([^"]*)"$`, tc.theWidgetReportsPayment)

	// Then steps
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^the cart has (\d+) of product "([^"]*)"$`, tc.theCartHasOfProduct)
	ctx.Step(`^the cart total is (\d+)$`, tc.theCartTotalIs)
	ctx.Step(`^the order cannot be submitted$`, tc.theOrderCannotBeSubmitted)
	ctx.Step(`^the submission is rejected for missing fields$`, tc.theSubmissionIsRejectedForMissingFields)
	ctx.Step(`^the backend received (\d+) order requests$`, tc.theBackendReceivedOrderRequests)
	ctx.Step(`^the backend received an order with (\d+) items$`, tc.theBackendReceivedAnOrderWithItems)
	ctx.Step(`^the checkout state is "([^"]*)"$`, tc.theCheckoutStateIs)
	ctx.Step(`^the confirmation shows order "([^"]*)"$`, tc.theConfirmationShowsOrder)
	ctx.Step(`^the form is empty$`, tc.theFormIsEmpty)
	ctx.Step(`^the form still holds name "([^"]*)"$`, tc.theFormStillHoldsName)
	ctx.Step(`^the user sees "([^"]*)"$`, tc.theUserSees)
	ctx.Step(`^no widget is opened$`, tc.noWidgetIsOpened)
	ctx.Step(`^the widget opens for order "([^"]*)"$`, tc.theWidgetOpensForOrder)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
