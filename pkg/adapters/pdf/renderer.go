// Package pdf renders conversation documents (order summaries, receipts) as
// PDF files and publishes them under a base URL.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/comanda/internal/runtime"
	"github.com/aretw0/comanda/pkg/variables"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Renderer implements ports.DocumentRenderer.
type Renderer struct {
	dir     string
	baseURL string
	now     func() time.Time
	title   string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the time source printed on documents.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithTitle sets the heading printed above the template name.
func WithTitle(title string) Option {
	return func(r *Renderer) { r.title = title }
}

// NewRenderer writes documents to dir and returns links under baseURL.
func NewRenderer(dir, baseURL string, opts ...Option) (*Renderer, error) {
	if dir == "" {
		dir = filepath.Join(".comanda", "documents")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create documents dir: %w", err)
	}
	r := &Renderer{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render lays out data as a document named after template and returns its URL.
// The cart (if any) is printed as an item table followed by the total; the
// remaining scalar values are listed as fields.
func (r *Renderer) Render(ctx context.Context, template string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := unsafeName.ReplaceAllString(strings.TrimSpace(template), "-")
	if name == "" || name == "-" {
		name = "document"
	}
	file := fmt.Sprintf("%s-%s.pdf", name, uuid.NewString())

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(template, true)
	doc.AddPage()

	if r.title != "" {
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, 6, tr(r.title), "", 1, "L", false, 0, "")
	}
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr(heading(template)), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, r.now().Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if key, ok := data["key"].(string); ok && key != "" {
		doc.CellFormat(0, 6, tr("Cliente: "+key), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	if items, ok := data["cart"].([]any); ok && len(items) > 0 {
		writeItems(doc, tr, items)
		total := num(data["cart_total"])
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(150, 8, "Total", "T", 0, "R", false, 0, "")
		doc.CellFormat(30, 8, money(total), "T", 1, "R", false, 0, "")
		doc.Ln(4)
	}

	writeFields(doc, tr, data)

	if err := doc.OutputFileAndClose(filepath.Join(r.dir, file)); err != nil {
		return "", fmt.Errorf("write %s: %w", file, err)
	}
	return r.baseURL + "/" + file, nil
}

func writeItems(doc *fpdf.Fpdf, tr func(string) string, items []any) {
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(90, 7, tr("Producto"), "B", 0, "L", true, 0, "")
	doc.CellFormat(30, 7, "Cant.", "B", 0, "R", true, 0, "")
	doc.CellFormat(30, 7, "Precio", "B", 0, "R", true, 0, "")
	doc.CellFormat(30, 7, "Subtotal", "B", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, raw := range items {
		it, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := it["name"].(string)
		if detail, _ := it["detail"].(string); detail != "" {
			name += " (" + detail + ")"
		}
		qty := num(it["quantity"])
		price := num(it["unit_price"])
		doc.CellFormat(90, 6, tr(name), "", 0, "L", false, 0, "")
		doc.CellFormat(30, 6, fmt.Sprintf("%g", qty), "", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, money(price), "", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, money(qty*price), "", 1, "R", false, 0, "")
	}
}

func writeFields(doc *fpdf.Fpdf, tr func(string) string, data map[string]any) {
	var keys []string
	for k, v := range data {
		switch k {
		case "cart", "cart_total", "key", variables.SystemNamespace:
			continue
		}
		switch v.(type) {
		case string, int, int64, float64, bool:
			keys = append(keys, k)
		}
	}
	if sys, ok := data[variables.SystemNamespace].(map[string]any); ok {
		if id, ok := sys["order_id"].(string); ok && id != "" {
			data = mergeField(data, "pedido", id)
			keys = append(keys, "pedido")
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	doc.SetFont("Helvetica", "", 10)
	for _, k := range keys {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(50, 6, tr(k), "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 6, tr(fmt.Sprint(data[k])), "", "L", false)
	}
}

func mergeField(data map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[key] = value
	return out
}

func heading(template string) string {
	t := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(template))
	if t == "" {
		return "Documento"
	}
	return strings.ToUpper(t[:1]) + t[1:]
}

func num(v any) float64 {
	f, _ := variables.Number(v)
	return f
}

func money(v float64) string {
	return runtime.FormatMoney(v)
}
