package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a flow.
// It applies semantic styling:
// - Entry: ((Circle))
// - Input (question, poll, media request): [/Parallelogram/]
// - Condition: {Rhombus}
// - Commerce (catalog, stock, cart, order): [[Subroutine]]
// - Handover and thread control: [(Cylinder)]
// - Default: [Rectangle]
// Poll edges are labeled with the option text, other handles verbatim.
func GenerateMermaid(flow *domain.Flow, entry string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	nodes := make(map[string]*domain.Node, len(flow.Nodes))
	for i := range flow.Nodes {
		n := &flow.Nodes[i]
		nodes[n.ID] = n
		safeID := sanitizeMermaidID(n.ID)

		opener, closer := shape(n, entry)
		label := n.ID + " <br/> " + string(n.Kind)
		switch cfg := n.Config.(type) {
		case *domain.TimerConfig:
			label += fmt.Sprintf(" <br/> ⏱️ %dms", cfg.DurationMs)
		case *domain.JumpConfig:
			label += " <br/> ↪ " + cfg.TargetFlowID
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer)
	}

	for _, e := range flow.Edges {
		from, to := sanitizeMermaidID(e.Source), sanitizeMermaidID(e.Target)
		arrow := "-->"
		if text := handleLabel(nodes[e.Source], e.SourceHandle); text != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(text))
		}
		if _, ok := nodes[e.Target]; !ok {
			// dangling
			arrow = "-. ⚠ .->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if _, ok := nodes[id]; ok && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if _, ok := nodes[overlay.CurrentNode]; ok {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func shape(n *domain.Node, entry string) (string, string) {
	if n.ID == entry {
		return "((", "))"
	}
	switch n.Kind {
	case domain.KindQuestion, domain.KindPoll, domain.KindMediaRequest:
		return "[/", "/]"
	case domain.KindCondition:
		return "{", "}"
	case domain.KindCatalog, domain.KindStockCheck, domain.KindAddToCart, domain.KindOrderSummary, domain.KindCreateOrder, domain.KindDocument, domain.KindClaim:
		return "[[", "]]"
	case domain.KindHandover, domain.KindThreadControl:
		return "[(", ")]"
	}
	return "[", "]"
}

func handleLabel(n *domain.Node, handle string) string {
	if handle == "" {
		return ""
	}
	if n != nil {
		if poll, ok := n.Config.(*domain.PollConfig); ok {
			if i, err := strconv.Atoi(handle); err == nil && i >= 0 && i < len(poll.Options) {
				return fmt.Sprintf("%d. %s", i+1, poll.Options[i])
			}
		}
	}
	return handle
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
