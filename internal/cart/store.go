package cart

import (
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrNegativeQuantity = errors.New("quantity must not be negative")

// Store is the in-memory cart of one session. Lines keep insertion order and
// there is at most one line per product id, each with quantity >= 1.
// A Store is not safe for concurrent use.
type Store struct {
	lines []domain.CartLine
}

func NewStore() *Store {
	return &Store{}
}

// Add appends the product with quantity 1, or bumps the existing line by one.
func (s *Store) Add(product domain.Product) {
	if i := s.index(product.ID); i >= 0 {
		s.lines[i].Quantity++
		return
	}
	s.lines = append(s.lines, domain.CartLine{Product: product, Quantity: 1})
}

// Remove drops the line for productID. Unknown ids are ignored.
func (s *Store) Remove(productID string) {
	i := s.index(productID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

// SetQuantity replaces the quantity of an existing line. Zero removes the line.
func (s *Store) SetQuantity(productID string, quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	if quantity == 0 {
		s.Remove(productID)
		return nil
	}
	if i := s.index(productID); i >= 0 {
		s.lines[i].Quantity = quantity
	}
	return nil
}

func (s *Store) Increment(productID string) {
	if q := s.Quantity(productID); q > 0 {
		_ = s.SetQuantity(productID, q+1)
	}
}

func (s *Store) Decrement(productID string) {
	if q := s.Quantity(productID); q > 0 {
		_ = s.SetQuantity(productID, q-1)
	}
}

// Quantity returns 0 when the product is not in the cart.
func (s *Store) Quantity(productID string) int {
	if i := s.index(productID); i >= 0 {
		return s.lines[i].Quantity
	}
	return 0
}

func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (s *Store) Clear() {
	s.lines = nil
}

// Len is the number of distinct lines, not the number of units.
func (s *Store) Len() int {
	return len(s.lines)
}

func (s *Store) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Items projects the cart onto order items. The result is never nil so that it
// encodes as an empty JSON array.
func (s *Store) Items() []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(s.lines))
	for _, l := range s.lines {
		items = append(items, domain.OrderItem{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return items
}

// Restore replaces the cart with lines coming from a stored snapshot.
// Duplicate ids are merged and non-positive quantities dropped.
func (s *Store) Restore(lines []domain.CartLine) {
	s.lines = nil
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := s.index(l.Product.ID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			continue
		}
		s.lines = append(s.lines, l)
	}
}

func (s *Store) index(productID string) int {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}
