package services

import (
	"time"

	"storefront/internal/domain"
	"storefront/internal/repos"

	"github.com/google/uuid"
)

// OrderService records orders for the sandbox. Submissions are stored
// exactly as sent: no repricing, stock or payment checks.
type OrderService struct {
	Orders *repos.OrderRepo
}

func NewOrderService(orders *repos.OrderRepo) *OrderService {
	return &OrderService{Orders: orders}
}

func (s *OrderService) Record(userID string, sub domain.OrderSubmission) (*domain.OrderReceipt, error) {
	orderID := uuid.NewString()
	if err := s.Orders.Create(orderID, userID, sub.Total, sub.Products); err != nil {
		return nil, err
	}
	o, items, err := s.Orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	return receipt(o, items), nil
}

func (s *OrderService) ListForUser(userID string) ([]domain.OrderReceipt, error) {
	rows, err := s.Orders.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrderReceipt, 0, len(rows))
	for _, o := range rows {
		_, items, err := s.Orders.Get(o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *receipt(o, items))
	}
	return out, nil
}

func receipt(o repos.OrderRow, items []repos.OrderItemRow) *domain.OrderReceipt {
	r := &domain.OrderReceipt{
		ID:        o.ID,
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: isoTime(o.CreatedAt),
		Products:  make([]domain.OrderLine, 0, len(items)),
	}
	for _, it := range items {
		r.Products = append(r.Products, domain.OrderLine{ID: it.ProductID, Name: it.Name, Price: it.Price, Quantity: it.Qty})
	}
	return r
}

// isoTime rewrites SQLite's CURRENT_TIMESTAMP text as RFC 3339.
func isoTime(s string) string {
	for _, layout := range []string{time.DateTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}
