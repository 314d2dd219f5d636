package checkout

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
)

// Snapshot is the serialisable state of a Coordinator.
type Snapshot struct {
	State    State                  `json:"state"`
	Lines    []domain.CartLine      `json:"lines"`
	Customer domain.CustomerInfo    `json:"customer"`
	Notes    string                 `json:"notes,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Success  *domain.OrderSuccess   `json:"success,omitempty"`
	Widget   *payment.WidgetOptions `json:"widget,omitempty"`
	Attempt  uint64                 `json:"attempt"`
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:    c.state,
		Lines:    c.cart.Lines(),
		Customer: c.customer,
		Notes:    c.notes,
		Message:  c.message,
		Success:  c.success,
		Widget:   c.widget,
		Attempt:  c.attempt,
	}
}

// Restore replaces the coordinator state. Unknown states fall back to browsing.
func (c *Coordinator) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Restore(s.Lines)
	c.state = s.State
	if !c.state.Valid() {
		c.state = StateBrowsing
	}
	c.customer = s.Customer
	c.notes = s.Notes
	c.message = s.Message
	c.success = s.Success
	c.widget = s.Widget
	c.attempt = s.Attempt
	c.cancel = nil
}
