package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/comanda/internal/presentation/graph"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func sampleFlow() *domain.Flow {
	return &domain.Flow{
		ID: "pedidos",
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.KindMessage, Config: &domain.MessageConfig{Text: "Hola"}},
			{ID: "menu", Kind: domain.KindPoll, Config: &domain.PollConfig{Question: "¿Qué querés?", Options: []string{"Pedir", "Hablar con alguien"}}},
			{ID: "check-stock", Kind: domain.KindStockCheck, Config: &domain.StockCheckConfig{}},
			{ID: "human", Kind: domain.KindHandover, Config: &domain.HandoverConfig{}},
			{ID: "wait", Kind: domain.KindTimer, Config: &domain.TimerConfig{DurationMs: 1500}},
		},
		Edges: []domain.Edge{
			{Source: "start", Target: "menu"},
			{Source: "menu", SourceHandle: "0", Target: "check-stock"},
			{Source: "menu", SourceHandle: "1", Target: "human"},
			{Source: "check-stock", SourceHandle: "true", Target: "wait"},
			{Source: "wait", Target: "nowhere"},
		},
	}
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	out := graph.GenerateMermaid(sampleFlow(), "start", nil)

	for _, want := range []string{
		"graph TD\n",
		`start(("start <br/> message"))`,
		`menu[/"menu <br/> poll"/]`,
		`check_stock[["check-stock <br/> stock_check"]]`,
		`human[("human <br/> handover")]`,
		`⏱️ 1500ms`,
		`menu -- "1. Pedir" --> check_stock`,
		`menu -- "2. Hablar con alguien" --> human`,
		`check_stock -- "true" --> wait`,
		`wait -. ⚠ .-> nowhere`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(sampleFlow(), "start", &graph.GraphOverlay{
		VisitedNodes: []string{"start", "menu", "start", "deleted"},
		CurrentNode:  "check-stock",
	})

	assert.Equal(t, 1, strings.Count(out, "class start visited;"))
	assert.Contains(t, out, "class menu visited;")
	assert.NotContains(t, out, "deleted")
	assert.Contains(t, out, "class check_stock current;")
}
