// Package graph provides the read-only, indexed view of a Flow used by the interpreter.
package graph

import (
	"fmt"

	"github.com/aretw0/comanda/pkg/domain"
)

// Graph indexes a flow's nodes and outgoing edges. It is immutable and safe
// to share across sessions.
type Graph struct {
	flow  *domain.Flow
	nodes map[string]*domain.Node
	out   map[string][]domain.Edge
	entry string
}

// New indexes flow. It fails only when the flow has no nodes.
func New(flow *domain.Flow) (*Graph, error) {
	if flow == nil || len(flow.Nodes) == 0 {
		return nil, fmt.Errorf("flow has no nodes")
	}
	g := &Graph{
		flow:  flow,
		nodes: make(map[string]*domain.Node, len(flow.Nodes)),
		out:   make(map[string][]domain.Edge),
	}
	for i := range flow.Nodes {
		n := &flow.Nodes[i]
		g.nodes[n.ID] = n
	}
	incoming := make(map[string]bool)
	for _, e := range flow.Edges {
		g.out[e.Source] = append(g.out[e.Source], e)
		incoming[e.Target] = true
	}

	g.entry = flow.Entry
	if _, ok := g.nodes[g.entry]; !ok {
		g.entry = ""
		for _, n := range flow.Nodes {
			if !incoming[n.ID] {
				g.entry = n.ID
				break
			}
		}
		if g.entry == "" {
			g.entry = flow.Nodes[0].ID
		}
	}
	return g, nil
}

// Flow returns the underlying flow.
func (g *Graph) Flow() *domain.Flow {
	return g.flow
}

// ID returns the flow id.
func (g *Graph) ID() string {
	return g.flow.ID
}

// Entry returns the id of the entry node.
func (g *Graph) Entry() string {
	return g.entry
}

// ResolveNode returns the node with the given id, or an error wrapping domain.ErrNodeNotFound.
func (g *Graph) ResolveNode(id string) (*domain.Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q in flow %q", domain.ErrNodeNotFound, id, g.flow.ID)
	}
	return n, nil
}

// ResolveOutgoing returns the edges leaving nodeID with the given handle.
// An empty handle selects edges without a handle; when there are none, every
// outgoing edge is returned so single-output nodes tolerate editor handle names.
func (g *Graph) ResolveOutgoing(nodeID, handle string) []domain.Edge {
	all := g.out[nodeID]
	var matched []domain.Edge
	for _, e := range all {
		if e.SourceHandle == handle {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 && handle == "" {
		return all
	}
	return matched
}

// Next resolves the target node for nodeID leaving through handle.
// When a specific handle has no edge, it falls back to the unlabeled edges and
// reports fellBack=true so callers can flag the authoring gap. Edges pointing at
// missing nodes are skipped. ok is false when the node has no usable edge (terminal).
func (g *Graph) Next(nodeID, handle string) (target string, fellBack bool, ok bool) {
	if target, ok := g.firstValid(g.ResolveOutgoing(nodeID, handle)); ok {
		return target, false, true
	}
	if handle == "" {
		return "", false, false
	}
	var unlabeled []domain.Edge
	for _, e := range g.out[nodeID] {
		if e.SourceHandle == "" {
			unlabeled = append(unlabeled, e)
		}
	}
	if target, ok := g.firstValid(unlabeled); ok {
		return target, true, true
	}
	return "", true, false
}

// HasOutgoing reports whether the node has at least one outgoing edge.
func (g *Graph) HasOutgoing(nodeID string) bool {
	return len(g.out[nodeID]) > 0
}

func (g *Graph) firstValid(edges []domain.Edge) (string, bool) {
	for _, e := range edges {
		if _, exists := g.nodes[e.Target]; exists {
			return e.Target, true
		}
	}
	return "", false
}
