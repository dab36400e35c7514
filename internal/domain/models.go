package domain

import "math"

// Product is the catalog item as served by the backend API. The cart treats
// it as opaque apart from ID and Price.
type Product struct {
	ID    string  `json:"id" db:"id"`
	Name  string  `json:"nombre" db:"name"`
	Price float64 `json:"precio" db:"price"`
	Image string  `json:"imagen,omitempty" db:"image"`
}

// CartLine is one product in the cart. Product is nil only for malformed
// lines restored from storage.
type CartLine struct {
	Product  *Product `json:"producto"`
	Quantity int      `json:"cantidad"`
}

// Valid reports whether the line carries a usable product.
func (l CartLine) Valid() bool {
	return l.Product != nil && l.Product.ID != ""
}

// UnitPrice returns the product price, or 0 when it is missing or unusable.
func (l CartLine) UnitPrice() float64 {
	if !l.Valid() {
		return 0
	}
	p := l.Product.Price
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	return p
}

// Subtotal is quantity × price for valid lines, 0 otherwise.
func (l CartLine) Subtotal() float64 {
	if !l.Valid() || l.Quantity <= 0 {
		return 0
	}
	return l.UnitPrice() * float64(l.Quantity)
}
