package ports

import (
	"context"

	"github.com/aretw0/comanda/pkg/domain"
)

// FlowRepository defines how the engine retrieves authored flows.
// The interpreter only reads flows; authoring happens elsewhere.
type FlowRepository interface {
	// GetFlow returns the flow with the given id or domain.ErrFlowNotFound.
	GetFlow(ctx context.Context, id string) (*domain.Flow, error)

	// FindByTrigger returns the active flow whose trigger matches text, or domain.ErrFlowNotFound.
	FindByTrigger(ctx context.Context, text string) (*domain.Flow, error)

	// ListFlows returns every known flow.
	ListFlows(ctx context.Context) ([]domain.Flow, error)
}

// FlowStore is a FlowRepository that also accepts authored flows (imports, admin API).
type FlowStore interface {
	FlowRepository

	// SaveFlow adds or replaces a flow.
	SaveFlow(ctx context.Context, flow *domain.Flow) error

	// DeleteFlow removes a flow. Deleting a missing flow is not an error.
	DeleteFlow(ctx context.Context, id string) error
}
