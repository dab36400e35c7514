package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionRepo keeps session-scoped entries keyed by the sid cookie. Entries
// expire ttl after their last write; expired rows read as missing.
type SessionRepo struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

func NewSessionRepo(db *sqlx.DB, ttl time.Duration) *SessionRepo {
	return &SessionRepo{db: db, ttl: ttl, now: time.Now}
}

func (r *SessionRepo) Get(ctx context.Context, sid, name string) (string, bool, error) {
	var v string
	err := r.db.GetContext(ctx, &v, `
		SELECT value FROM session_entries
		WHERE session_id=? AND name=? AND expires_at > ?
	`, sid, name, r.now().Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *SessionRepo) Set(ctx context.Context, sid, name, value string) error {
	exp := r.now().Add(r.ttl).Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_entries(session_id, name, value, expires_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(session_id, name) DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at
	`, sid, name, value, exp)
	return err
}

func (r *SessionRepo) Remove(ctx context.Context, sid, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_entries WHERE session_id=? AND name=?`, sid, name)
	return err
}

// Touch slides the expiry of the named entries that have not expired yet.
func (r *SessionRepo) Touch(ctx context.Context, sid string, names ...string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	now := r.now()
	q, args, err := sqlx.In(`
		UPDATE session_entries SET expires_at=?
		WHERE session_id=? AND name IN (?) AND expires_at > ?
	`, now.Add(r.ttl).Unix(), sid, names, now.Unix())
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeExpired deletes expired rows and reports how many were removed.
func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_entries WHERE expires_at <= ?`, r.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
