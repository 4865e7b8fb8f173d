package validator

import (
	"testing"

	"github.com/aretw0/comanda/internal/compiler"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, doc string) *domain.Flow {
	t.Helper()
	f, err := compiler.NewParser().Parse([]byte(doc))
	require.NoError(t, err)
	return f
}

func codes(r Report) []string {
	var out []string
	for _, w := range r.Warnings {
		out = append(out, w.Code)
	}
	return out
}

func TestValidateFlows_Valid(t *testing.T) {
	f := parse(t, `
id: saludo
triggers: [hola]
nodes:
  - id: a
    type: message
    data: {text: "Hola"}
  - id: b
    type: message
    data: {text: "Chau"}
edges:
  - {source: a, target: b}
`)
	r := ValidateFlows([]*domain.Flow{f}, "saludo")
	assert.True(t, r.OK(), r.String())
	assert.Equal(t, 1, r.Flows)
}

func TestValidateFlows_Problems(t *testing.T) {
	a := parse(t, `
id: a
triggers: [Menú]
nodes:
  - id: start
    type: message
    data: {text: "x"}
  - id: orphan
    type: message
    data: {text: "y"}
edges:
  - {source: start, target: ghost}
`)
	b := parse(t, `
id: b
triggers: [menu]
nodes:
  - id: start
    type: message
    data: {text: "x"}
`)
	r := ValidateFlows([]*domain.Flow{a, b}, "missing")

	got := codes(r)
	assert.Contains(t, got, domain.WarnDanglingEdge)
	assert.Contains(t, got, domain.WarnUnreachableNode)
	assert.Contains(t, got, WarnDuplicateTrigger)
	assert.Contains(t, got, WarnUnknownDefault)
	assert.False(t, r.OK())
	assert.Contains(t, r.String(), "a/start: [dangling_edge]")
}
