package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// DurableRepo stores one opaque value per (partition, owner). It backs
// storage that must survive reloads and restarts, such as the cart.
type DurableRepo struct{ db *sqlx.DB }

func NewDurableRepo(db *sqlx.DB) *DurableRepo { return &DurableRepo{db: db} }

// Get returns the stored value; ok is false when nothing was stored yet.
func (r *DurableRepo) Get(ctx context.Context, partition, owner string) (value []byte, ok bool, err error) {
	var s string
	err = r.db.GetContext(ctx, &s, `SELECT value FROM durable_entries WHERE partition=? AND owner=?`, partition, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(s), true, nil
}

func (r *DurableRepo) Put(ctx context.Context, partition, owner string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO durable_entries(partition, owner, value, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(partition, owner) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
	`, partition, owner, string(value), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (r *DurableRepo) Delete(ctx context.Context, partition, owner string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM durable_entries WHERE partition=? AND owner=?`, partition, owner)
	return err
}
