// Package sqlite keeps sessions, flows and the back office (catalog, orders,
// claims) in a SQLite database through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS flows (
	id       TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	active   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	price    REAL NOT NULL,
	stock    INTEGER NOT NULL,
	aliases  TEXT NOT NULL DEFAULT '[]',
	position INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS orders (
	id           TEXT PRIMARY KEY,
	customer_ref TEXT NOT NULL,
	total        REAL NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
	order_id   TEXT NOT NULL REFERENCES orders(id),
	line       INTEGER NOT NULL,
	product_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	unit_price REAL NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (order_id, line)
);
CREATE TABLE IF NOT EXISTS claims (
	id           TEXT PRIMARY KEY,
	customer_ref TEXT NOT NULL,
	type         TEXT NOT NULL,
	priority     TEXT NOT NULL,
	description  TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);`

// Open opens the database at dsn and creates the schema.
// A ":memory:" database is limited to one connection so every query sees the same data.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables used by this package if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return nil
}
