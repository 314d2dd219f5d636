package session

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
)

// Session is everything the gateway remembers about one visitor between
// requests.
type Session struct {
	ID        string            `json:"id"`
	Checkout  checkout.Snapshot `json:"checkout"`
	Category  string            `json:"category,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

var ErrSessionNotFound = errors.New("session not found")

const DefaultTTL = 2 * time.Hour
