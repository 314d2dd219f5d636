package http

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/session"
)

// Sessions rebuilds a coordinator from the stored session for each request.
type Sessions struct {
	manager  *session.Manager
	orders   checkout.OrderSubmitter
	payments checkout.PaymentBridge
	opts     checkout.Options
}

func NewSessions(manager *session.Manager, orders checkout.OrderSubmitter, payments checkout.PaymentBridge, opts checkout.Options) *Sessions {
	return &Sessions{
		manager:  manager,
		orders:   orders,
		payments: payments,
		opts:     opts,
	}
}

func (s *Sessions) coordinator(sess *session.Session) *checkout.Coordinator {
	c := checkout.NewCoordinator(s.orders, s.payments, s.opts)
	c.Restore(sess.Checkout)
	return c
}

// View loads the session without changing it.
func (s *Sessions) View(ctx context.Context, id string) (*checkout.Coordinator, *session.Session, error) {
	sess, err := s.manager.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.coordinator(sess), sess, nil
}

// Update runs fn with the session locked and saves the result unless fn fails.
func (s *Sessions) Update(ctx context.Context, id string, fn func(c *checkout.Coordinator, sess *session.Session) error) (*checkout.Coordinator, *session.Session, error) {
	unlock := s.manager.Lock(id)
	defer unlock()

	sess, err := s.manager.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c := s.coordinator(sess)
	if err := fn(c, sess); err != nil {
		return c, sess, err
	}
	sess.Checkout = c.Snapshot()
	if err := s.manager.Save(ctx, sess); err != nil {
		return nil, nil, err
	}
	return c, sess, nil
}

// Track and CancelInFlight expose the manager's in-flight registry.
func (s *Sessions) Track(id string, attempt uint64, cancel context.CancelFunc) func() {
	return s.manager.Track(id, attempt, cancel)
}

func (s *Sessions) CancelInFlight(id string) bool {
	return s.manager.CancelInFlight(id)
}
