package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type inflight struct {
	attempt uint64
	cancel  context.CancelFunc
}

// Manager serialises access to individual sessions and tracks the backend
// call each one has in flight.
type Manager struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu       sync.Mutex
	locks    map[string]*lockEntry
	inflight map[string]inflight
}

func NewManager(store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:    store,
		log:      log,
		now:      time.Now,
		locks:    make(map[string]*lockEntry),
		inflight: make(map[string]inflight),
	}
}

func (m *Manager) NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one this manager hands out.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Lock blocks until the caller holds the session. The returned func releases it.
func (m *Manager) Lock(id string) func() {
	m.mu.Lock()
	e, ok := m.locks[id]
	if !ok {
		e = &lockEntry{}
		m.locks[id] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// Load returns the stored session or a fresh one when there is none.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return &Session{ID: id, Checkout: emptyCheckout()}, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = m.now().UTC()
	return m.store.Save(ctx, s)
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	m.CancelInFlight(id)
	return m.store.Delete(ctx, id)
}

// Track records the cancel func of the call serving attempt. The returned
// func forgets it again once the call is over.
func (m *Manager) Track(id string, attempt uint64, cancel context.CancelFunc) func() {
	m.mu.Lock()
	m.inflight[id] = inflight{attempt: attempt, cancel: cancel}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		if cur, ok := m.inflight[id]; ok && cur.attempt == attempt {
			delete(m.inflight, id)
		}
		m.mu.Unlock()
	}
}

// CancelInFlight aborts the backend call of the session, if any.
func (m *Manager) CancelInFlight(id string) bool {
	m.mu.Lock()
	cur, ok := m.inflight[id]
	delete(m.inflight, id)
	m.mu.Unlock()

	if ok {
		cur.cancel()
		m.log.Debug("cancelled in-flight request", zap.String("session_id", id), zap.Uint64("attempt", cur.attempt))
	}
	return ok
}

func emptyCheckout() checkout.Snapshot {
	return checkout.Snapshot{State: checkout.StateBrowsing}
}
