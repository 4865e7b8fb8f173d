package variables_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/comanda/pkg/variables"
	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	ctx := variables.New(map[string]any{
		"name":  "Ana",
		"total": 1234567.5,
		"qty":   3,
		"ok":    true,
		"stock": map[string]any{"name": "Leche", "price": 950.0},
	}, map[string]any{"phone": "5491100000000"})

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"Double Braces", "Hola {{name}}!", "Hola Ana!"},
		{"Single Braces", "Hola {name}!", "Hola Ana!"},
		{"Spaces Inside", "Hola {{ name }}", "Hola Ana"},
		{"Unknown Is Empty", "Hola {{missing}}.", "Hola ."},
		{"Float Without Separators", "Total: {{total}}", "Total: 1234567.5"},
		{"Int", "{qty} unidades", "3 unidades"},
		{"Bool", "{{ok}}", "true"},
		{"Nested", "{{stock.name}} a {{stock.price}}", "Leche a 950"},
		{"System Namespace", "Tu número: {{sys.phone}}", "Tu número: 5491100000000"},
		{"No Placeholders", "sin variables", "sin variables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ctx.Interpolate(tt.template))
		})
	}
}

func TestSetOverwritesAndProtectsSystem(t *testing.T) {
	vars := map[string]any{}
	sys := map[string]any{"phone": "1"}
	ctx := variables.New(vars, sys)

	ctx.Set("answer", "a")
	ctx.Set("answer", "b")
	ctx.Set("sys.phone", "hijack")

	assert.Equal(t, "b", vars["answer"])
	assert.Equal(t, "1", sys["phone"])
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", variables.Stringify(nil))
	assert.Equal(t, "1000000", variables.Stringify(1e6))
	assert.Equal(t, "0.1", variables.Stringify(0.1))
	assert.Equal(t, "12", variables.Stringify(json.Number("12")))
	assert.Equal(t, "a, 2", variables.Stringify([]any{"a", 2}))
}

func TestNumber(t *testing.T) {
	n, ok := variables.Number(" 2,5 ")
	assert.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = variables.Number("dos")
	assert.False(t, ok)
}
