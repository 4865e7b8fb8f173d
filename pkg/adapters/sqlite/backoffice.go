package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/google/uuid"
)

// Order is a stored order.
type Order struct {
	ID          string
	CustomerRef string
	Total       float64
	CreatedAt   time.Time
	Items       []domain.LineItem
}

// BackOffice implements ports.OrderCreator and ports.ClaimCreator.
// Creating an order decrements the stock of the ordered products, never below zero.
type BackOffice struct {
	db  *sql.DB
	now func() time.Time
}

func NewBackOffice(db *sql.DB) *BackOffice {
	return &BackOffice{db: db, now: time.Now}
}

func (b *BackOffice) CreateOrder(ctx context.Context, customerRef string, items []domain.LineItem) (string, error) {
	if len(items) == 0 {
		return "", errors.New("order has no items")
	}
	id := uuid.NewString()
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_ref, total, created_at) VALUES (?, ?, ?, ?)`,
		id, customerRef, total, b.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("failed to insert order: %w", err)
	}
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, line, product_id, name, quantity, unit_price, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Detail); err != nil {
			return "", fmt.Errorf("failed to insert order item: %w", err)
		}
		if item.ProductID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = MAX(stock - ?, 0) WHERE id = ?`, item.Quantity, item.ProductID); err != nil {
			return "", fmt.Errorf("failed to update stock: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (b *BackOffice) CreateClaim(ctx context.Context, claim domain.Claim) (string, error) {
	id := uuid.NewString()
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO claims (id, customer_ref, type, priority, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, claim.CustomerRef, claim.Type, claim.Priority, claim.Description, b.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to insert claim: %w", err)
	}
	return id, nil
}

// Order returns a stored order with its items.
func (b *BackOffice) Order(ctx context.Context, id string) (*Order, error) {
	o := &Order{ID: id}
	var created int64
	err := b.db.QueryRowContext(ctx,
		`SELECT customer_ref, total, created_at FROM orders WHERE id = ?`, id).Scan(&o.CustomerRef, &o.Total, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	o.CreatedAt = time.UnixMilli(created)

	rows, err := b.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, unit_price, detail FROM order_items
		WHERE order_id = ? ORDER BY line`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &item.Detail); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// Claims returns the claims filed by customerRef, oldest first.
func (b *BackOffice) Claims(ctx context.Context, customerRef string) ([]domain.Claim, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT type, priority, description, customer_ref FROM claims
		WHERE customer_ref = ? ORDER BY created_at, rowid`, customerRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.Type, &c.Priority, &c.Description, &c.CustomerRef); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
