package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/comanda/internal/compiler"
	"github.com/aretw0/comanda/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// FlowStore implements ports.FlowStore in a Redis hash, so imported flows are
// shared by every replica. Trigger lookup scans flows in id order.
type FlowStore struct {
	client *backend.Client
	key    string
	parser *compiler.Parser
}

// NewFlowStore creates a flow store under prefix.
func NewFlowStore(client *backend.Client, prefix string) *FlowStore {
	return &FlowStore{client: client, key: prefix + "flows", parser: compiler.NewParser()}
}

func (f *FlowStore) SaveFlow(ctx context.Context, flow *domain.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}
	return f.client.HSet(ctx, f.key, flow.ID, data).Err()
}

func (f *FlowStore) DeleteFlow(ctx context.Context, id string) error {
	return f.client.HDel(ctx, f.key, id).Err()
}

func (f *FlowStore) GetFlow(ctx context.Context, id string) (*domain.Flow, error) {
	data, err := f.client.HGet(ctx, f.key, id).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}
	return f.parser.Parse(data)
}

func (f *FlowStore) FindByTrigger(ctx context.Context, text string) (*domain.Flow, error) {
	all, err := f.ListFlows(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Active && all[i].MatchesTrigger(text) {
			return &all[i], nil
		}
	}
	return nil, domain.ErrFlowNotFound
}

func (f *FlowStore) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	raw, err := f.client.HGetAll(ctx, f.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.Flow, 0, len(ids))
	for _, id := range ids {
		flow, err := f.parser.Parse([]byte(raw[id]))
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", id, err)
		}
		out = append(out, *flow)
	}
	return out, nil
}
