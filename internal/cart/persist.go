package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"storefront/internal/domain"
)

// PartitionName is the durable storage slot holding the cart lines.
const PartitionName = "cart-storage"

var ErrNotSequence = errors.New("persisted items is not a sequence")

// Persister loads and saves the encoded cart of one visitor.
type Persister interface {
	Load(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, value []byte) error
}

type persisted struct {
	Items []domain.CartLine `json:"items"`
}

// Encode serializes the only persisted slice of cart state, its lines.
func Encode(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return json.Marshal(persisted{Items: lines})
}

// Decode restores lines from storage. It always returns a usable slice: when
// the value is not an object with an items array the result is empty and err
// explains why. Elements are decoded field by field: a product without an id
// becomes a malformed line, a bad price reads as 0 and a bad quantity as 1.
// Lines with a product and a quantity below 1 are dropped.
func Decode(raw []byte) ([]domain.CartLine, error) {
	var outer struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil {
		return []domain.CartLine{}, fmt.Errorf("decode cart: %w", err)
	}
	items := bytes.TrimSpace(outer.Items)
	if len(items) == 0 || items[0] != '[' {
		return []domain.CartLine{}, ErrNotSequence
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(items, &elems); err != nil {
		return []domain.CartLine{}, fmt.Errorf("decode cart items: %w", err)
	}
	lines := make([]domain.CartLine, 0, len(elems))
	for _, e := range elems {
		l := decodeLine(e)
		if l.Valid() && l.Quantity < 1 {
			continue
		}
		lines = append(lines, l)
	}
	return lines, nil
}

type storedLine struct {
	Product  json.RawMessage `json:"producto"`
	Quantity json.RawMessage `json:"cantidad"`
}

type storedProduct struct {
	ID    json.RawMessage `json:"id"`
	Name  json.RawMessage `json:"nombre"`
	Price json.RawMessage `json:"precio"`
	Image json.RawMessage `json:"imagen"`
}

func decodeLine(raw json.RawMessage) domain.CartLine {
	var sl storedLine
	if err := json.Unmarshal(raw, &sl); err != nil {
		return domain.CartLine{}
	}
	l := domain.CartLine{Quantity: 1}
	if q, ok := number(sl.Quantity); ok && math.Abs(q) < math.MaxInt32 {
		l.Quantity = int(q)
	}
	var sp storedProduct
	if err := json.Unmarshal(sl.Product, &sp); err != nil {
		return l
	}
	id := text(sp.ID)
	if id == "" {
		return l
	}
	price, _ := number(sp.Price)
	l.Product = &domain.Product{ID: id, Name: text(sp.Name), Price: price, Image: text(sp.Image)}
	return l
}

// text reads a JSON string, or the literal of a JSON number.
func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func number(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}
