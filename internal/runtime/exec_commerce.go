package runtime

import (
	"fmt"
	"math"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/orderparse"
	"github.com/aretw0/comanda/pkg/variables"
)

func execCatalog(x *execution) Result {
	cfg := x.node.Config.(*domain.CatalogConfig)
	if x.it.catalog == nil {
		return x.authoring("catalog node without a product catalog")
	}
	products, err := x.it.catalog.ListAll(x.ctx)
	if err != nil {
		return x.collaborator("catalog", err, "")
	}

	if !x.resuming {
		x.it.say(x.result, catalogText(x.vars.Interpolate(cfg.Text), products, x.it.texts.OutOfStockMark))
		if cfg.NoWait {
			return next("")
		}
		return halt()
	}
	if x.input == nil {
		return halt()
	}

	items := orderparse.Parse(x.text(), products)
	if len(items) == 0 {
		retry := cfg.RetryText
		if retry == "" {
			retry = x.it.texts.CatalogRetry
		}
		x.say(retry)
		return halt()
	}

	name := cfg.Variable
	if name == "" {
		name = "items"
	}
	x.vars.Set(name, itemsValue(items))
	if cfg.AddToCart {
		x.session.Cart = domain.AggregateItems(append(x.session.Cart, items...))
	}
	return next("")
}

func catalogText(header string, products []domain.Product, outOfStock string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, p := range products {
		b.WriteString("\n• ")
		b.WriteString(p.Name)
		b.WriteString(" ")
		b.WriteString(FormatMoney(p.Price))
		if !p.Available() {
			b.WriteString(" ")
			b.WriteString(outOfStock)
		}
	}
	return b.String()
}

func execStockCheck(x *execution) Result {
	cfg := x.node.Config.(*domain.StockCheckConfig)
	if !x.resuming {
		x.say(cfg.Question)
		return halt()
	}
	if x.input == nil {
		return halt()
	}
	if x.it.catalog == nil {
		return x.authoring("stock check without a product catalog")
	}
	query := x.text()
	p, err := x.it.catalog.Lookup(x.ctx, query)
	if err != nil {
		return x.collaborator("catalog", err, "")
	}

	result := map[string]any{
		"name":      query,
		"stock":     0,
		"price":     0.0,
		"available": false,
		"found":     false,
	}
	if p != nil {
		result = map[string]any{
			"product_id": p.ID,
			"name":       p.Name,
			"stock":      p.Stock,
			"price":      p.Price,
			"available":  p.Available(),
			"found":      true,
		}
	}
	name := cfg.ResultVariable
	if name == "" {
		name = "stock"
	}
	x.vars.Set(name, result)
	return next("")
}

func execAddToCart(x *execution) Result {
	cfg := x.node.Config.(*domain.AddToCartConfig)
	invalid := func(format string, args ...any) Result {
		x.warn(domain.WarnInvalidCartItem, format, args...)
		msg := cfg.InvalidText
		if msg == "" {
			msg = x.it.texts.InvalidItem
		}
		x.say(msg)
		return next(domain.HandleInvalid)
	}

	qty := 1
	if cfg.QtyVariable != "" {
		if raw, ok := x.vars.Get(cfg.QtyVariable); ok {
			n, ok := variables.Number(raw)
			if !ok || n <= 0 {
				return invalid("quantity %q is not a positive number", variables.Stringify(raw))
			}
			qty = int(math.Max(1, math.Round(n)))
		}
	}
	detail := x.vars.String(cfg.DetailVariable)

	raw, ok := x.vars.Get(cfg.ProductVariable)
	if !ok {
		return invalid("product variable %q is unset", cfg.ProductVariable)
	}

	var items []domain.LineItem
	switch v := raw.(type) {
	case []any:
		for _, entry := range v {
			item, ok := itemFromValue(entry)
			if !ok {
				return invalid("unrecognized cart item %v", entry)
			}
			items = append(items, item)
		}
	case map[string]any:
		item, ok := itemFromValue(v)
		if !ok {
			return invalid("unrecognized product %v", v)
		}
		if cfg.QtyVariable != "" {
			item.Quantity = qty
		}
		items = append(items, item)
	default:
		if x.it.catalog == nil {
			return x.authoring("add to cart by name without a product catalog")
		}
		p, err := x.it.catalog.Lookup(x.ctx, variables.Stringify(v))
		if err != nil {
			return x.collaborator("catalog", err, "")
		}
		if p == nil {
			return invalid("product %q not found", variables.Stringify(v))
		}
		items = append(items, domain.LineItem{ProductID: p.ID, Name: p.Name, Quantity: qty, UnitPrice: p.Price})
	}
	if len(items) == 0 {
		return invalid("no items to add")
	}
	for i := range items {
		if items[i].Detail == "" {
			items[i].Detail = detail
		}
	}

	x.session.Cart = domain.AggregateItems(append(x.session.Cart, items...))
	x.vars.Set("cart_total", x.session.CartTotal())
	x.say(cfg.ConfirmText)
	return next("")
}

// itemFromValue builds a line item from a catalog or stock-check map.
func itemFromValue(v any) (domain.LineItem, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.LineItem{}, false
	}
	id := variables.Stringify(m["product_id"])
	if id == "" {
		id = variables.Stringify(m["id"])
	}
	if id == "" {
		return domain.LineItem{}, false
	}
	item := domain.LineItem{
		ProductID: id,
		Name:      variables.Stringify(m["name"]),
		Quantity:  1,
		Detail:    variables.Stringify(m["detail"]),
	}
	if q, ok := variables.Number(m["quantity"]); ok && q > 0 {
		item.Quantity = int(math.Max(1, math.Round(q)))
	}
	if p, ok := variables.Number(m["unit_price"]); ok {
		item.UnitPrice = p
	} else if p, ok := variables.Number(m["price"]); ok {
		item.UnitPrice = p
	}
	return item, true
}

func itemsValue(items []domain.LineItem) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		m := map[string]any{
			"product_id": it.ProductID,
			"name":       it.Name,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice,
		}
		if it.Detail != "" {
			m["detail"] = it.Detail
		}
		out = append(out, m)
	}
	return out
}

func execOrderSummary(x *execution) Result {
	cfg := x.node.Config.(*domain.OrderSummaryConfig)
	if len(x.session.Cart) == 0 {
		msg := cfg.EmptyText
		if msg == "" {
			msg = x.it.texts.CartEmpty
		}
		x.say(msg)
		return next("")
	}
	header := cfg.Header
	if header == "" {
		header = x.it.texts.SummaryHeader
	}
	total := x.session.CartTotal()
	x.vars.Set("order_total", total)
	x.it.say(x.result, x.vars.Interpolate(header)+"\n"+Summary(x.session.Cart))
	return next("")
}

// Summary renders cart lines and the total, one line per item.
func Summary(cart []domain.LineItem) string {
	var b strings.Builder
	var total float64
	for _, item := range cart {
		fmt.Fprintf(&b, "%d x %s", item.Quantity, item.Name)
		if item.Detail != "" {
			fmt.Fprintf(&b, " (%s)", item.Detail)
		}
		fmt.Fprintf(&b, " %s\n", FormatMoney(item.Subtotal()))
		total += item.Subtotal()
	}
	fmt.Fprintf(&b, "Total: %s", FormatMoney(total))
	return b.String()
}

// FormatMoney prints an amount without decimals when integral, with two otherwise.
func FormatMoney(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("$%.0f", v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func execCreateOrder(x *execution) Result {
	cfg := x.node.Config.(*domain.CreateOrderConfig)
	if len(x.session.Cart) == 0 {
		msg := cfg.EmptyText
		if msg == "" {
			msg = x.it.texts.CartEmpty
		}
		x.say(msg)
		return next(domain.HandleEmpty)
	}
	if x.it.orders == nil {
		return x.authoring("create order without an order collaborator")
	}

	customer := x.vars.String(cfg.CustomerVariable)
	if customer == "" {
		customer = x.session.Key
	}
	id, err := x.it.orders.CreateOrder(x.ctx, customer, domain.AggregateItems(x.session.Cart))
	if err != nil {
		return x.collaborator("orders", err, cfg.ErrorText)
	}

	x.vars.Set("order_total", x.session.CartTotal())
	x.session.Cart = nil
	name := cfg.ResultVariable
	if name == "" {
		name = "order_id"
	}
	x.vars.Set(name, id)
	x.vars.Set("order_id", id)
	x.vars.SetSystem("order_id", id)

	msg := cfg.SuccessText
	if msg == "" {
		msg = x.it.texts.OrderCreated
	}
	x.say(msg)
	return next("")
}

func execClaim(x *execution) Result {
	cfg := x.node.Config.(*domain.ClaimConfig)
	if x.it.claims == nil {
		return x.authoring("claim node without a claim collaborator")
	}
	body := x.vars.String(cfg.BodyVariable)
	if body == "" {
		body = x.vars.String("sys.last_input")
	}
	claim := domain.Claim{
		Type:        cfg.Type,
		Priority:    cfg.Priority,
		Description: body,
		CustomerRef: x.session.Key,
	}
	if claim.Type == "" {
		claim.Type = "general"
	}
	if claim.Priority == "" {
		claim.Priority = "normal"
	}
	id, err := x.it.claims.CreateClaim(x.ctx, claim)
	if err != nil {
		return x.collaborator("claims", err, cfg.ErrorText)
	}
	name := cfg.ResultVariable
	if name == "" {
		name = "claim_id"
	}
	x.vars.Set(name, id)
	x.vars.Set("claim_id", id)

	msg := cfg.Confirmation
	if msg == "" {
		msg = x.it.texts.ClaimCreated
	}
	x.say(msg)
	return next("")
}

func execDocument(x *execution) Result {
	cfg := x.node.Config.(*domain.DocumentConfig)
	if x.it.renderer == nil {
		return x.authoring("document node without a renderer")
	}
	data := x.vars.Snapshot()
	data["cart"] = itemsValue(x.session.Cart)
	data["cart_total"] = x.session.CartTotal()
	data["key"] = x.session.Key

	url, err := x.it.renderer.Render(x.ctx, x.vars.Interpolate(cfg.Template), data)
	if err != nil {
		return x.collaborator("renderer", err, cfg.ErrorText)
	}
	x.vars.Set(cfg.Variable, url)
	x.sendMedia(url, cfg.Caption)
	return next("")
}
