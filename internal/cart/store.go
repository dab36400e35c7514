// Package cart holds the shopping cart of one visitor: its lines, the
// drawer open flag, totals and persistence of the lines.
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

var ErrInvalidProduct = errors.New("invalid product")

const persistTimeout = 2 * time.Second

type Store struct {
	mu      sync.Mutex
	lines   []domain.CartLine
	open    bool
	persist Persister
	owner   string
}

// Snapshot is a consistent copy of the cart taken under one lock.
type Snapshot struct {
	Lines      []domain.CartLine
	Items      []domain.CartLine // valid lines only
	IsOpen     bool
	Total      float64
	TotalItems int
}

// New restores the persisted lines, if any. The drawer always starts closed.
// A nil persister keeps the cart in memory only.
func New(ctx context.Context, owner string, p Persister) *Store {
	s := &Store{persist: p, owner: owner, lines: []domain.CartLine{}}
	if p == nil {
		return s
	}
	raw, ok, err := p.Load(ctx)
	if err != nil {
		applog.Error(nil, "cart.load.fail", err, map[string]any{"owner": owner})
		return s
	}
	if !ok {
		return s
	}
	lines, err := Decode(raw)
	if err != nil {
		applog.Warn(nil, "cart.load.discard", err, map[string]any{"owner": owner})
	}
	s.lines = lines
	return s
}

// AddItem increments the product's line or appends a new one, then opens
// the drawer. Invalid products are logged and ignored.
func (s *Store) AddItem(product *domain.Product) {
	if product == nil || product.ID == "" {
		applog.Error(nil, "cart.add.invalid", ErrInvalidProduct, map[string]any{"owner": s.owner})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		p := *product
		s.lines = append(s.lines, domain.CartLine{Product: &p, Quantity: 1})
	}
	s.open = true
	s.saveLocked()
}

// RemoveItem decrements the product's line, deleting it instead of
// reaching zero.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	if s.lines[i].Quantity > 1 {
		s.lines[i].Quantity--
	} else {
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
	}
	s.saveLocked()
}

// DeleteItem removes the product's line whatever its quantity.
func (s *Store) DeleteItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
	s.saveLocked()
}

// ClearCart empties the cart. The drawer keeps its state.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = []domain.CartLine{}
	s.saveLocked()
}

func (s *Store) OpenCart() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

func (s *Store) CloseCart() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// ToggleCart flips the drawer and returns the new state.
func (s *Store) ToggleCart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	return s.open
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Lines returns a deep copy of the lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLines(s.lines)
}

func (s *Store) ValidLines() []domain.CartLine {
	return ValidLines(s.Lines())
}

func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Total(s.lines)
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TotalItems(s.lines)
}

// OrderData builds the order payload from the current lines, stamped now.
func (s *Store) OrderData() domain.OrderSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return OrderData(s.lines, time.Now())
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Lines:      copyLines(s.lines),
		Items:      copyLines(ValidLines(s.lines)),
		IsOpen:     s.open,
		Total:      Total(s.lines),
		TotalItems: TotalItems(s.lines),
	}
}

func (s *Store) indexOf(productID string) int {
	if productID == "" {
		return -1
	}
	for i, l := range s.lines {
		if l.Valid() && l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// saveLocked writes the lines through the persister. Failures are logged;
// the in-memory cart stays authoritative.
func (s *Store) saveLocked() {
	if s.persist == nil {
		return
	}
	raw, err := Encode(s.lines)
	if err != nil {
		applog.Error(nil, "cart.save.encode", err, map[string]any{"owner": s.owner})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persist.Save(ctx, raw); err != nil {
		applog.Error(nil, "cart.save.fail", err, map[string]any{"owner": s.owner})
	}
}

func copyLines(in []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(in))
	for i, l := range in {
		out[i] = domain.CartLine{Quantity: l.Quantity}
		if l.Product != nil {
			p := *l.Product
			out[i].Product = &p
		}
	}
	return out
}
