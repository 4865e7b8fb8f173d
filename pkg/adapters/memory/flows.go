package memory

import (
	"context"
	"sync"

	"github.com/aretw0/comanda/pkg/domain"
)

// FlowRepository implements ports.FlowRepository over flows kept in memory.
// Trigger lookup follows registration order.
type FlowRepository struct {
	mu    sync.RWMutex
	order []string
	flows map[string]*domain.Flow
}

// NewFlowRepository creates a repository seeded with flows.
func NewFlowRepository(flows ...*domain.Flow) *FlowRepository {
	r := &FlowRepository{flows: make(map[string]*domain.Flow)}
	for _, f := range flows {
		_ = r.SaveFlow(context.Background(), f)
	}
	return r
}

// SaveFlow adds or replaces a flow.
func (r *FlowRepository) SaveFlow(ctx context.Context, flow *domain.Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flows[flow.ID]; !exists {
		r.order = append(r.order, flow.ID)
	}
	r.flows[flow.ID] = flow
	return nil
}

// DeleteFlow removes a flow. Removing an unknown flow is a no-op.
func (r *FlowRepository) DeleteFlow(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flows[id]; !exists {
		return nil
	}
	delete(r.flows, id)
	for i, fid := range r.order {
		if fid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *FlowRepository) GetFlow(ctx context.Context, id string) (*domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[id]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return f, nil
}

func (r *FlowRepository) FindByTrigger(ctx context.Context, text string) (*domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if f := r.flows[id]; f.Active && f.MatchesTrigger(text) {
			return f, nil
		}
	}
	return nil, domain.ErrFlowNotFound
}

func (r *FlowRepository) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Flow, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.flows[id])
	}
	return out, nil
}
