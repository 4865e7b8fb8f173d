package domain

// Product is an item of the external product catalog.
type Product struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Price   float64  `json:"price"`
	Stock   int      `json:"stock"`
	Aliases []string `json:"aliases,omitempty"`
}

// Available reports whether the product has stock.
func (p Product) Available() bool {
	return p.Stock > 0
}

// LineItem is one product line of a cart or an order.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Detail    string  `json:"detail,omitempty"`
}

// Subtotal returns quantity times unit price.
func (l LineItem) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// AggregateItems merges lines with the same product and detail, keeping first-seen order.
func AggregateItems(items []LineItem) []LineItem {
	type key struct{ product, detail string }
	index := make(map[key]int)
	var out []LineItem
	for _, item := range items {
		k := key{item.ProductID, item.Detail}
		if i, ok := index[k]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

// Claim is a report or complaint filed from a conversation.
type Claim struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	CustomerRef string `json:"customer_ref"`
}
