package cart

import (
	"math"
	"time"

	"storefront/internal/domain"
)

// UnnamedProduct replaces a missing product name in checkout submissions.
const UnnamedProduct = "Unnamed product"

// Total sums quantity × price over valid lines. Malformed lines, missing
// prices and non-positive quantities contribute 0.
func Total(lines []domain.CartLine) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// TotalItems sums the quantities of valid lines.
func TotalItems(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		if l.Valid() && l.Quantity > 0 {
			n += l.Quantity
		}
	}
	return n
}

// ValidLines filters out lines without a usable product.
func ValidLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Valid() {
			out = append(out, l)
		}
	}
	return out
}

// BuildSubmission turns lines into the order payload. Malformed lines are
// skipped; a missing name, an unusable price or quantity are coerced.
func BuildSubmission(lines []domain.CartLine, total float64) domain.OrderSubmission {
	products := make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		if !l.Valid() {
			continue
		}
		name := l.Product.Name
		if name == "" {
			name = UnnamedProduct
		}
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		products = append(products, domain.OrderLine{
			ID:       l.Product.ID,
			Name:     name,
			Price:    l.UnitPrice(),
			Quantity: qty,
		})
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		total = 0
	}
	return domain.OrderSubmission{Products: products, Total: total}
}

// OrderData is BuildSubmission over all lines, stamped with now in ISO 8601.
func OrderData(lines []domain.CartLine, now time.Time) domain.OrderSubmission {
	sub := BuildSubmission(lines, Total(lines))
	sub.Date = now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return sub
}
