package domain

// OrderLine is one product row of a checkout submission.
type OrderLine struct {
	ID       string  `json:"id"`
	Name     string  `json:"nombre"`
	Price    float64 `json:"precio"`
	Quantity int     `json:"cantidad"`
}

// OrderSubmission is built from the cart at checkout time and never persisted
// on the storefront side. Date is only set by the cart's order snapshot.
type OrderSubmission struct {
	Products []OrderLine `json:"productos"`
	Total    float64     `json:"total"`
	Date     string      `json:"fecha,omitempty"`
}

// OrderReceipt is the data payload the backend returns for a created order.
type OrderReceipt struct {
	ID        string      `json:"id"`
	Total     float64     `json:"total"`
	Status    string      `json:"estado,omitempty"`
	CreatedAt string      `json:"fecha,omitempty"`
	Products  []OrderLine `json:"productos,omitempty"`
}
