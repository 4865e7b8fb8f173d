// Package flows serves indexed, validated flow graphs to the interpreter.
package flows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/comanda/internal/logging"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/graph"
	"github.com/aretw0/comanda/pkg/ports"
	c "github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a compiled graph is served before re-reading the repository.
const DefaultTTL = 5 * time.Minute

// Cache wraps a FlowRepository and keeps compiled graphs shared across sessions.
// Authoring warnings are reported once per compilation.
type Cache struct {
	repo      ports.FlowRepository
	graphs    *c.Cache
	logger    *slog.Logger
	onWarning func(context.Context, domain.Warning)
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the graph expiration. Zero or negative disables expiration.
func WithTTL(ttl time.Duration) Option {
	return func(fc *Cache) {
		if ttl <= 0 {
			ttl = c.NoExpiration
		}
		fc.graphs = c.New(ttl, 2*ttl)
	}
}

// WithLogger sets the logger used for authoring warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(fc *Cache) {
		fc.logger = logger
	}
}

// WithWarningHandler registers a callback invoked for each authoring warning.
func WithWarningHandler(fn func(context.Context, domain.Warning)) Option {
	return func(fc *Cache) {
		fc.onWarning = fn
	}
}

// NewCache creates a graph cache over repo.
func NewCache(repo ports.FlowRepository, opts ...Option) *Cache {
	fc := &Cache{
		repo:   repo,
		graphs: c.New(DefaultTTL, 2*DefaultTTL),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// Graph returns the compiled graph of the flow.
func (fc *Cache) Graph(ctx context.Context, flowID string) (*graph.Graph, error) {
	if g, found := fc.graphs.Get(flowID); found {
		return g.(*graph.Graph), nil
	}
	flow, err := fc.repo.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return fc.compile(ctx, flow)
}

// ByTrigger returns the graph of the active flow selected by text.
func (fc *Cache) ByTrigger(ctx context.Context, text string) (*graph.Graph, error) {
	flow, err := fc.repo.FindByTrigger(ctx, text)
	if err != nil {
		return nil, err
	}
	if g, found := fc.graphs.Get(flow.ID); found {
		return g.(*graph.Graph), nil
	}
	return fc.compile(ctx, flow)
}

// Invalidate drops the cached graph of flowID, or every graph when flowID is empty.
func (fc *Cache) Invalidate(flowID string) {
	if flowID == "" {
		fc.graphs.Flush()
		return
	}
	fc.graphs.Delete(flowID)
}

// Validate compiles every flow of the repository and returns all authoring warnings.
func (fc *Cache) Validate(ctx context.Context) ([]domain.Warning, error) {
	all, err := fc.repo.ListFlows(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(all))
	for _, f := range all {
		known[f.ID] = true
	}
	var warnings []domain.Warning
	for i := range all {
		g, err := graph.New(&all[i])
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", all[i].ID, err)
		}
		warnings = append(warnings, g.Validate(known)...)
	}
	return warnings, nil
}

func (fc *Cache) compile(ctx context.Context, flow *domain.Flow) (*graph.Graph, error) {
	g, err := graph.New(flow)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", flow.ID, err)
	}
	for _, w := range g.Validate(nil) {
		fc.Warn(ctx, w)
	}
	fc.graphs.SetDefault(flow.ID, g)
	return g, nil
}

// Warn logs an authoring warning and forwards it to the warning handler.
func (fc *Cache) Warn(ctx context.Context, w domain.Warning) {
	fc.logger.Warn("flow authoring issue",
		"flow_id", w.FlowID, "node_id", w.NodeID, "warning", w.Code, "msg", w.Message)
	if fc.onWarning != nil {
		fc.onWarning(ctx, w)
	}
}
