package domain

import (
	"strings"
	"unicode"
)

// Flow is one authored automation script: a set of typed nodes and directed edges.
// A Flow is immutable during an execution step.
type Flow struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Triggers []string `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Active   bool     `json:"active" yaml:"active"`
	// Entry is the id of the first node. When empty, the first node without
	// incoming edges (in declaration order) is used.
	Entry string `json:"entry,omitempty" yaml:"entry,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Edge connects a source node to a target node.
// SourceHandle disambiguates multi-output nodes ("true"/"false" for conditions,
// the zero-based option index for polls).
type Edge struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Source       string `json:"source" yaml:"source"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	Target       string `json:"target" yaml:"target"`
}

// MatchesTrigger reports whether the text selects this flow.
// Matching is case-insensitive on the trimmed text; a trigger also matches when
// it is the first word of the text.
func (f *Flow) MatchesTrigger(text string) bool {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return false
	}
	first := clean
	if i := strings.IndexAny(clean, " \t\n"); i > 0 {
		first = clean[:i]
	}
	clean = strings.TrimFunc(clean, isPunct)
	first = strings.TrimFunc(first, isPunct)
	for _, t := range f.Triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if t == clean || t == first {
			return true
		}
	}
	return false
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Warning describes an authoring problem detected while validating or executing a flow.
// Warnings never stop execution; they are surfaced to operators.
type Warning struct {
	FlowID  string `json:"flow_id"`
	NodeID  string `json:"node_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarnMissingVariable   = "missing_variable"
	WarnMissingEdge       = "missing_edge"
	WarnDanglingEdge      = "dangling_edge"
	WarnUnreachableNode   = "unreachable_node"
	WarnMissingEntry      = "missing_entry"
	WarnUnknownJumpTarget = "unknown_jump_target"
	WarnInvalidCartItem   = "invalid_cart_item"
	WarnExpression        = "expression_error"
	WarnNodeReset         = "node_reset"
	WarnInvalidConfig     = "invalid_config"
)
