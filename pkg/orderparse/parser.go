// Package orderparse turns free-form order text into cart line items using
// best-effort matching against a product catalog.
//
// Every line is folded (lowercase, no accents), its quantity extracted, stop
// words removed and words singularized before being matched by token
// containment against product names and aliases. Ties go to the product
// listed first in the catalog.
package orderparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
)

// Result is the outcome of parsing a whole text.
type Result struct {
	Items     []domain.LineItem
	Unmatched []string
}

var (
	leadingQty  = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:x|u|un|unid|unidades)?\s+(.+)$`)
	trailingQty = regexp.MustCompile(`^(.+?)\s+x?\s*(\d+(?:[.,]\d+)?)$`)
	lineSplit   = regexp.MustCompile(`\r?\n|;|,\s+`)
)

var numberWords = map[string]int{
	"un": 1, "uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10, "docena": 12,
}

// Parse returns the matched line items of text, merged by product.
func Parse(text string, catalog []domain.Product) []domain.LineItem {
	return ParseDetailed(text, catalog).Items
}

// ParseDetailed is like Parse but also reports the lines that matched no product.
func ParseDetailed(text string, catalog []domain.Product) Result {
	var res Result
	for _, raw := range lineSplit.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		qty, rest := splitQuantity(Fold(line))
		if qty <= 0 {
			res.Unmatched = append(res.Unmatched, line)
			continue
		}
		p, ok := BestMatch(rest, catalog)
		if !ok {
			res.Unmatched = append(res.Unmatched, line)
			continue
		}
		res.Items = append(res.Items, domain.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  qty,
			UnitPrice: p.Price,
		})
	}
	res.Items = domain.AggregateItems(res.Items)
	return res
}

// BestMatch finds the catalog product that best matches a free-text query.
func BestMatch(query string, catalog []domain.Product) (domain.Product, bool) {
	q := Tokens(query)
	if len(q) == 0 {
		return domain.Product{}, false
	}
	best, bestScore := -1, 0
	for i, p := range catalog {
		top := 0
		for _, name := range append([]string{p.Name}, p.Aliases...) {
			if s := score(q, Tokens(name)); s > top {
				top = s
			}
		}
		if top > bestScore {
			best, bestScore = i, top
		}
	}
	if best < 0 {
		return domain.Product{}, false
	}
	return catalog[best], true
}

// score ranks how well query tokens match a product name. Zero means no match.
// A name fully contained in the query ranks above a query contained in the name.
func score(query, name []string) int {
	if len(name) == 0 {
		return 0
	}
	qset := make(map[string]bool, len(query))
	for _, t := range query {
		qset[t] = true
	}
	common := 0
	for _, t := range name {
		if qset[t] {
			common++
		}
	}
	switch {
	case common == 0:
		return 0
	case common == len(name):
		return 4*common + 2
	case common == len(qset):
		return 4*common + 1
	case 2*common >= len(name):
		return 4 * common
	}
	return 0
}

// splitQuantity extracts the quantity of a folded line. Lines without an
// explicit number count as one unit.
func splitQuantity(line string) (int, string) {
	if m := leadingQty.FindStringSubmatch(line); m != nil {
		return toQty(m[1]), m[2]
	}
	if m := trailingQty.FindStringSubmatch(line); m != nil {
		return toQty(m[2]), m[1]
	}
	words := strings.Fields(line)
	for i, w := range words {
		n, ok := numberWords[w]
		if !ok {
			if _, err := strconv.ParseFloat(strings.Replace(w, ",", ".", 1), 64); err != nil {
				continue
			}
			n = toQty(w)
		}
		if len(words) == 1 {
			break
		}
		rest := append(append([]string(nil), words[:i]...), words[i+1:]...)
		return n, strings.Join(rest, " ")
	}
	return 1, line
}

func toQty(s string) int {
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	if f <= 0 {
		return 0
	}
	return int(math.Max(1, math.Round(f)))
}
