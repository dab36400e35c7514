package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per-connection; keep a single one so every
	// query sees the same schema.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Durable storage partitions (cart-storage, ...), one value per visitor
CREATE TABLE IF NOT EXISTS durable_entries(
  partition TEXT NOT NULL,
  owner TEXT NOT NULL,
  value TEXT NOT NULL,
  updated_at TEXT,
  PRIMARY KEY(partition, owner)
);

-- Session-scoped storage (authToken, authUser), swept once expired
CREATE TABLE IF NOT EXISTS session_entries(
  session_id TEXT NOT NULL,
  name TEXT NOT NULL,
  value TEXT NOT NULL,
  expires_at INTEGER NOT NULL,
  PRIMARY KEY(session_id, name)
);
CREATE INDEX IF NOT EXISTS idx_session_entries_expires ON session_entries(expires_at);

-- Sandbox backend: users
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

-- Sandbox backend: products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  image TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Sandbox backend: orders are stored as submitted
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'RECEIVED',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  qty INTEGER NOT NULL,
  PRIMARY KEY(order_id, position)
);
`
	_, err := db.Exec(schema)
	return err
}

// Seed inserts the sandbox catalog and demo users. Safe to run on every start.
func Seed(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	if n == 0 {
		log.Println("[seed] inserting demo products")
		tx.MustExec(`INSERT INTO products(id,name,price,image) VALUES
		  ('mate-001','Mate de calabaza',8500,'/static/img/mate-001.jpg'),
		  ('yerba-001','Yerba mate 1kg',4200,'/static/img/yerba-001.jpg'),
		  ('termo-001','Termo acero 1L',32000,'/static/img/termo-001.jpg'),
		  ('bombilla-001','Bombilla alpaca',6100,'')`)
	}

	h, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), 12)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO users(id,email,first_name,last_name,password_hash)
		VALUES('u-ana','ana@storefront.test','Ana','García',?)
	`, string(h)); err != nil {
		return err
	}
	return tx.Commit()
}
