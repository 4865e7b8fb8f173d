package graph

import (
	"fmt"
	"strconv"

	"github.com/aretw0/comanda/pkg/domain"
)

// Validate reports authoring problems: dangling edges, missing branch edges,
// unset condition variables and nodes unreachable from the entry.
// knownFlows, when non-nil, is used to check jump targets.
func (g *Graph) Validate(knownFlows map[string]bool) []domain.Warning {
	var warnings []domain.Warning
	warn := func(nodeID, code, format string, args ...any) {
		warnings = append(warnings, domain.Warning{
			FlowID:  g.flow.ID,
			NodeID:  nodeID,
			Code:    code,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if g.flow.Entry != "" {
		if _, ok := g.nodes[g.flow.Entry]; !ok {
			warn(g.flow.Entry, domain.WarnMissingEntry, "declared entry node %q does not exist, using %q", g.flow.Entry, g.entry)
		}
	}

	for _, e := range g.flow.Edges {
		if _, ok := g.nodes[e.Source]; !ok {
			warn(e.Source, domain.WarnDanglingEdge, "edge %q leaves unknown node %q", e.ID, e.Source)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			warn(e.Source, domain.WarnDanglingEdge, "edge %q points at unknown node %q", e.ID, e.Target)
		}
	}

	for _, n := range g.flow.Nodes {
		switch cfg := n.Config.(type) {
		case *domain.ConditionConfig:
			if cfg.Variable == "" && cfg.Expression == "" {
				warn(n.ID, domain.WarnMissingVariable, "condition has no variable; it always takes the false edge")
			}
			for _, h := range []string{domain.HandleTrue, domain.HandleFalse} {
				if len(g.ResolveOutgoing(n.ID, h)) == 0 {
					warn(n.ID, domain.WarnMissingEdge, "condition has no %q edge", h)
				}
			}
		case *domain.PollConfig:
			fallback := g.hasUnlabeled(n.ID)
			for i := range cfg.Options {
				if !fallback && len(g.ResolveOutgoing(n.ID, strconv.Itoa(i))) == 0 {
					warn(n.ID, domain.WarnMissingEdge, "poll option %d (%q) has no edge", i+1, cfg.Options[i])
				}
			}
			if cfg.Variable == "" {
				warn(n.ID, domain.WarnMissingVariable, "poll has no result variable")
			}
		case *domain.QuestionConfig:
			if cfg.Variable == "" {
				warn(n.ID, domain.WarnMissingVariable, "question has no variable to store the answer")
			}
		case *domain.JumpConfig:
			if cfg.TargetFlowID == "" {
				warn(n.ID, domain.WarnUnknownJumpTarget, "jump has no target flow")
			} else if knownFlows != nil && !knownFlows[cfg.TargetFlowID] {
				warn(n.ID, domain.WarnUnknownJumpTarget, "jump targets unknown flow %q", cfg.TargetFlowID)
			}
		}
	}

	reachable := g.reachable()
	for _, n := range g.flow.Nodes {
		if !reachable[n.ID] {
			warn(n.ID, domain.WarnUnreachableNode, "node is unreachable from entry %q", g.entry)
		}
	}

	return warnings
}

func (g *Graph) reachable() map[string]bool {
	visited := make(map[string]bool)
	queue := []string{g.entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, e := range g.out[current] {
			if _, ok := g.nodes[e.Target]; ok && !visited[e.Target] {
				queue = append(queue, e.Target)
			}
		}
	}
	return visited
}

func (g *Graph) hasUnlabeled(nodeID string) bool {
	for _, e := range g.out[nodeID] {
		if e.SourceHandle == "" {
			return true
		}
	}
	return false
}
