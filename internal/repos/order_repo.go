package repos

import (
	"storefront/internal/domain"

	"github.com/jmoiron/sqlx"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type OrderRow struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	Total     float64 `db:"total"`
	Status    string  `db:"status"`
	CreatedAt string  `db:"created_at"`
}

type OrderItemRow struct {
	ProductID string  `db:"product_id"`
	Name      string  `db:"name"`
	Price     float64 `db:"price"`
	Qty       int     `db:"qty"`
}

// Create stores the order header and its lines in one transaction.
func (r *OrderRepo) Create(orderID, userID string, total float64, lines []domain.OrderLine) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO orders(id, user_id, total, status, created_at)
	  VALUES(?, ?, ?, 'RECEIVED', CURRENT_TIMESTAMP)
	`, orderID, userID, total); err != nil {
		return err
	}
	for i, l := range lines {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, position, product_id, name, price, qty)
		  VALUES(?, ?, ?, ?, ?, ?)
		`, orderID, i, l.ID, l.Name, l.Price, l.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *OrderRepo) Get(orderID string) (OrderRow, []OrderItemRow, error) {
	var o OrderRow
	if err := r.db.Get(&o, `SELECT id, user_id, total, status, created_at FROM orders WHERE id = ?`, orderID); err != nil {
		return OrderRow{}, nil, err
	}
	items := []OrderItemRow{}
	if err := r.db.Select(&items, `
		SELECT product_id, name, price, qty FROM order_items
		WHERE order_id = ? ORDER BY position
	`, orderID); err != nil {
		return OrderRow{}, nil, err
	}
	return o, items, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(userID string) ([]OrderRow, error) {
	out := []OrderRow{}
	err := r.db.Select(&out, `
		SELECT id, user_id, total, status, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY datetime(created_at) DESC, id
	`, userID)
	return out, err
}
