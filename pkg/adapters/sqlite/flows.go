package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/comanda/internal/compiler"
	"github.com/aretw0/comanda/pkg/domain"
)

// FlowStore implements ports.FlowStore. Trigger lookup follows insertion order;
// re-saving a flow keeps its position.
type FlowStore struct {
	db     *sql.DB
	parser *compiler.Parser
}

func NewFlowStore(db *sql.DB) *FlowStore {
	return &FlowStore{db: db, parser: compiler.NewParser()}
}

func (f *FlowStore) SaveFlow(ctx context.Context, flow *domain.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}
	_, err = f.db.ExecContext(ctx, `
		INSERT INTO flows (id, document, active) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, active = excluded.active`,
		flow.ID, string(data), flow.Active)
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

func (f *FlowStore) DeleteFlow(ctx context.Context, id string) error {
	if _, err := f.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}

func (f *FlowStore) GetFlow(ctx context.Context, id string) (*domain.Flow, error) {
	var doc string
	err := f.db.QueryRowContext(ctx, `SELECT document FROM flows WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}
	return f.parser.Parse([]byte(doc))
}

func (f *FlowStore) FindByTrigger(ctx context.Context, text string) (*domain.Flow, error) {
	flows, err := f.list(ctx, `SELECT id, document FROM flows WHERE active = 1 ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	for i := range flows {
		if flows[i].MatchesTrigger(text) {
			return &flows[i], nil
		}
	}
	return nil, domain.ErrFlowNotFound
}

func (f *FlowStore) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	return f.list(ctx, `SELECT id, document FROM flows ORDER BY rowid`)
}

func (f *FlowStore) list(ctx context.Context, query string) ([]domain.Flow, error) {
	rows, err := f.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var out []domain.Flow
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		flow, err := f.parser.Parse([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", id, err)
		}
		out = append(out, *flow)
	}
	return out, rows.Err()
}
