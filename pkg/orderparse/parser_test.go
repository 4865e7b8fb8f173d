package orderparse_test

import (
	"testing"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/orderparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalog = []domain.Product{
	{ID: "p1", Name: "Coca Cola", Price: 1500, Stock: 10},
	{ID: "p2", Name: "Pan Integral", Price: 900, Stock: 5},
	{ID: "p3", Name: "Leche Entera", Price: 1200, Stock: 0},
	{ID: "p4", Name: "Pan Blanco", Price: 700, Stock: 8},
	{ID: "p5", Name: "Limón", Price: 300, Stock: 50, Aliases: []string{"limon verde"}},
}

func TestParse_MultiLineOrder(t *testing.T) {
	items := orderparse.Parse("2 coca cola\n3x pan integral\n1 leche", catalog)
	require.Len(t, items, 3)

	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "p2", items[1].ProductID)
	assert.Equal(t, 3, items[1].Quantity)
	assert.Equal(t, "p3", items[2].ProductID)
	assert.Equal(t, 1, items[2].Quantity)
	assert.Equal(t, 1200.0, items[2].UnitPrice)
}

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		product string
		qty     int
	}{
		{"trailing x", "coca cola x4", "p1", 4},
		{"trailing number", "pan blanco 2", "p4", 2},
		{"number word", "dos panes blancos", "p4", 2},
		{"no quantity", "limón", "p5", 1},
		{"accents and plural", "5 LIMONES", "p5", 5},
		{"stop words", "quiero 2 de leche por favor", "p3", 2},
		{"number inside", "me das tres panes integrales", "p2", 3},
		{"decimal rounds", "1,6 coca cola", "p1", 2},
		{"alias", "3 limon verde", "p5", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := orderparse.Parse(tt.text, catalog)
			require.Len(t, items, 1)
			assert.Equal(t, tt.product, items[0].ProductID)
			assert.Equal(t, tt.qty, items[0].Quantity)
		})
	}
}

func TestParse_MergesDuplicates(t *testing.T) {
	items := orderparse.Parse("1 coca cola; 2 coca cola, pan integral", catalog)
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "p2", items[1].ProductID)
}

func TestParseDetailed_Unmatched(t *testing.T) {
	res := orderparse.ParseDetailed("2 coca cola\n3 helado\n0 pan integral", catalog)
	require.Len(t, res.Items, 1)
	assert.Equal(t, []string{"3 helado", "0 pan integral"}, res.Unmatched)
}

func TestBestMatch(t *testing.T) {
	p, ok := orderparse.BestMatch("pan", catalog)
	require.True(t, ok)
	assert.Equal(t, "p2", p.ID, "ties go to the first product in catalog order")

	p, ok = orderparse.BestMatch("pan blanco", catalog)
	require.True(t, ok)
	assert.Equal(t, "p4", p.ID)

	_, ok = orderparse.BestMatch("por favor", catalog)
	assert.False(t, ok)
}

func TestSingularize(t *testing.T) {
	cases := map[string]string{
		"panes":      "pan",
		"luces":      "luz",
		"integrales": "integral",
		"leches":     "leche",
		"cocas":      "coca",
		"gas":        "gas",
		"pan":        "pan",
	}
	for in, want := range cases {
		assert.Equal(t, want, orderparse.Singularize(in), in)
	}
}
