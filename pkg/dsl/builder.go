// Package dsl provides a fluent API to build flows in code (tests, examples, embedded bots).
package dsl

import (
	"fmt"

	"github.com/aretw0/comanda/pkg/domain"
)

// Builder manages the flow construction.
type Builder struct {
	flow  domain.Flow
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
}

// New creates a new flow builder. The flow is active by default.
func New(flowID string) *Builder {
	return &Builder{
		flow:  domain.Flow{ID: flowID, Active: true},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Triggers sets the keywords that start this flow.
func (b *Builder) Triggers(keywords ...string) *Builder {
	b.flow.Triggers = append(b.flow.Triggers, keywords...)
	return b
}

// Entry sets the entry node explicitly.
func (b *Builder) Entry(nodeID string) *Builder {
	b.flow.Entry = nodeID
	return b
}

// Inactive marks the flow as disabled.
func (b *Builder) Inactive() *Builder {
	b.flow.Active = false
	return b
}

// Add creates a new node in the flow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build returns the flow. It fails when a node was added without a kind.
func (b *Builder) Build() (*domain.Flow, error) {
	flow := b.flow
	flow.Nodes = make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		n := b.nodes[id].node
		if n.Config == nil {
			return nil, fmt.Errorf("node %q has no kind", id)
		}
		flow.Nodes = append(flow.Nodes, n)
	}
	flow.Edges = append([]domain.Edge(nil), b.edges...)
	return &flow, nil
}

// MustBuild is like Build but panics on error. Intended for tests and examples.
func (b *Builder) MustBuild() *domain.Flow {
	flow, err := b.Build()
	if err != nil {
		panic(err)
	}
	return flow
}

func (b *Builder) connect(source, handle, target string) {
	b.edges = append(b.edges, domain.Edge{
		ID:           fmt.Sprintf("e%d-%s-%s", len(b.edges)+1, source, target),
		Source:       source,
		SourceHandle: handle,
		Target:       target,
	})
}
