package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/orderparse"
)

// Catalog implements ports.Catalog over the products table.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

// Upsert inserts or replaces products, listing them in the given order after existing ones.
func (c *Catalog) Upsert(ctx context.Context, products ...domain.Product) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM products`).Scan(&next); err != nil {
		return fmt.Errorf("failed to read catalog position: %w", err)
	}
	for _, p := range products {
		aliases, err := json.Marshal(p.Aliases)
		if err != nil {
			return err
		}
		next++
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (id, name, price, stock, aliases, position) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, price = excluded.price,
				stock = excluded.stock, aliases = excluded.aliases`,
			p.ID, p.Name, p.Price, p.Stock, string(aliases), next)
		if err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// SetStock updates the stock of a product.
func (c *Catalog) SetStock(ctx context.Context, productID string, stock int) error {
	_, err := c.db.ExecContext(ctx, `UPDATE products SET stock = ? WHERE id = ?`, stock, productID)
	return err
}

func (c *Catalog) Lookup(ctx context.Context, query string) (*domain.Product, error) {
	p, err := c.get(ctx, query)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	all, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	best, ok := orderparse.BestMatch(query, all)
	if !ok {
		return nil, nil
	}
	return &best, nil
}

func (c *Catalog) get(ctx context.Context, id string) (*domain.Product, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, name, price, stock, aliases FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Catalog) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, price, stock, aliases FROM products ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	var aliases string
	if err := s.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &aliases); err != nil {
		return p, err
	}
	if aliases != "" && aliases != "null" {
		if err := json.Unmarshal([]byte(aliases), &p.Aliases); err != nil {
			return p, fmt.Errorf("product %s aliases: %w", p.ID, err)
		}
	}
	return p, nil
}
