package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/graph"
	"github.com/aretw0/comanda/pkg/orderparse"
)

// Codes reported across flows, on top of the per-flow graph warnings.
const (
	WarnDuplicateTrigger = "duplicate_trigger"
	WarnUnknownDefault   = "unknown_default_flow"
	WarnEmptyFlow        = "empty_flow"
)

// Report is the outcome of validating a set of flows.
type Report struct {
	Flows    int
	Warnings []domain.Warning
}

// OK reports whether no warning was found.
func (r Report) OK() bool {
	return len(r.Warnings) == 0
}

// String renders one warning per line, grouped by flow.
func (r Report) String() string {
	var sb strings.Builder
	for _, w := range r.Warnings {
		if w.NodeID != "" {
			fmt.Fprintf(&sb, "%s/%s: [%s] %s\n", w.FlowID, w.NodeID, w.Code, w.Message)
		} else {
			fmt.Fprintf(&sb, "%s: [%s] %s\n", w.FlowID, w.Code, w.Message)
		}
	}
	return sb.String()
}

// ValidateFlows checks every flow graph and the set as a whole: triggers claimed
// by more than one active flow and a default flow that does not exist.
func ValidateFlows(flows []*domain.Flow, defaultFlow string) Report {
	known := make(map[string]bool, len(flows))
	for _, f := range flows {
		known[f.ID] = true
	}

	report := Report{Flows: len(flows)}
	owners := make(map[string][]string)
	for _, f := range flows {
		g, err := graph.New(f)
		if err != nil {
			report.Warnings = append(report.Warnings, domain.Warning{
				FlowID: f.ID, Code: WarnEmptyFlow, Message: err.Error(),
			})
			continue
		}
		report.Warnings = append(report.Warnings, g.Validate(known)...)

		if !f.Active {
			continue
		}
		for _, t := range f.Triggers {
			key := orderparse.Fold(strings.TrimSpace(t))
			if key != "" && !contains(owners[key], f.ID) {
				owners[key] = append(owners[key], f.ID)
			}
		}
	}

	triggers := make([]string, 0, len(owners))
	for t := range owners {
		triggers = append(triggers, t)
	}
	sort.Strings(triggers)
	for _, t := range triggers {
		if ids := owners[t]; len(ids) > 1 {
			report.Warnings = append(report.Warnings, domain.Warning{
				FlowID:  ids[1],
				Code:    WarnDuplicateTrigger,
				Message: fmt.Sprintf("trigger %q is also claimed by %s; the first registered flow wins", t, strings.Join(ids[:1], ", ")),
			})
		}
	}

	if defaultFlow != "" && !known[defaultFlow] {
		report.Warnings = append(report.Warnings, domain.Warning{
			FlowID:  defaultFlow,
			Code:    WarnUnknownDefault,
			Message: "default flow does not exist",
		})
	}
	return report
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
