package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/intake"
	"github.com/aretw0/comanda/pkg/orderparse"
)

// importText allows pasted order lists longer than a chat message.
var importText = intake.Sanitizer{MaxChars: 16 * intake.MaxTextBody}

// ImportRequest is a free-text order typed in by an operator.
type ImportRequest struct {
	Customer string `json:"customer"`
	Text     string `json:"text"`
}

// ImportResponse reports the order created from an ImportRequest.
type ImportResponse struct {
	OrderID   string            `json:"order_id"`
	Items     []domain.LineItem `json:"items"`
	Unmatched []string          `json:"unmatched,omitempty"`
	Total     float64           `json:"total"`
}

// ImportOrder handles POST /import: the text is parsed against the catalog
// and the matched items become an order.
func (s *Server) ImportOrder(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Catalog == nil || s.cfg.Orders == nil {
		notImplemented(w)
		return
	}
	var req ImportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	text, err := importText.Sanitize(req.Text)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	customer := strings.TrimSpace(req.Customer)
	if customer == "" || text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "customer and text are required"})
		return
	}

	catalog, err := s.cfg.Catalog.ListAll(r.Context())
	if err != nil {
		s.fail(w, "Load catalog", err)
		return
	}
	parsed := orderparse.ParseDetailed(text, catalog)
	if len(parsed.Items) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ImportResponse{Items: []domain.LineItem{}, Unmatched: parsed.Unmatched})
		return
	}

	id, err := s.cfg.Orders.CreateOrder(r.Context(), customer, parsed.Items)
	if err != nil {
		s.fail(w, "Create order", err)
		return
	}
	resp := ImportResponse{OrderID: id, Items: parsed.Items, Unmatched: parsed.Unmatched}
	for _, it := range parsed.Items {
		resp.Total += it.Subtotal()
	}
	s.logger.Info("Order imported", "order_id", id, "customer", customer, "items", len(parsed.Items))
	writeJSON(w, http.StatusCreated, resp)
}
