package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/comanda/internal/compiler"
	"github.com/aretw0/comanda/pkg/adapters/whatsapp"
	"github.com/aretw0/comanda/pkg/dispatch"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodySize = 1 << 20

// Engine is the conversation engine surface the API drives.
type Engine interface {
	HandleInbound(ctx context.Context, msg domain.InboundMessage) error
	ResolveHandover(ctx context.Context, key string) error
	Pause(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
	Session(ctx context.Context, key string) (*domain.Session, error)
}

// Dispatcher serializes work per conversation key.
type Dispatcher interface {
	Dispatch(ctx context.Context, key string, task dispatch.Task) error
}

// SessionLister lists the keys of stored sessions.
type SessionLister interface {
	List(ctx context.Context) ([]string, error)
}

// Config wires the collaborators of the API. Only Engine is required; routes
// whose collaborator is missing answer 501.
type Config struct {
	Engine     Engine
	Dispatcher Dispatcher
	Sessions   SessionLister
	Flows      ports.FlowRepository
	Catalog    ports.Catalog
	Orders     ports.OrderCreator

	// OnFlowChanged is called after a flow is saved or deleted through the API.
	OnFlowChanged func(flowID string)

	// VerifyToken answers the webhook subscription challenge.
	VerifyToken string
	// AppSecret, when set, requires a valid X-Hub-Signature-256 on webhook posts.
	AppSecret string

	// DocumentsDir, when set, is served under /documents/.
	DocumentsDir string

	Metrics http.Handler
	Streams *StreamManager
	Logger  *slog.Logger
}

// Server holds the handlers of the HTTP API.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// NewHandler creates the HTTP handler for the API.
func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/webhook", s.VerifyWebhook)
	r.Post("/webhook", s.ReceiveWebhook)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Get("/{key}", s.GetSession)
		r.Delete("/{key}", s.ResetSession)
		r.Post("/{key}/pause", s.PauseSession)
		r.Post("/{key}/resolve", s.ResolveSession)
	})

	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.ListFlows)
		r.Post("/", s.SaveFlow)
		r.Get("/{id}", s.GetFlow)
		r.Delete("/{id}", s.DeleteFlow)
	})

	r.Post("/import", s.ImportOrder)
	r.Get("/events", s.SubscribeEvents)

	if cfg.DocumentsDir != "" {
		r.Handle("/documents/*", http.StripPrefix("/documents/", http.FileServer(http.Dir(cfg.DocumentsDir))))
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	return r
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VerifyWebhook answers the gateway subscription handshake.
func (s *Server) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || s.cfg.VerifyToken == "" || q.Get("hub.verify_token") != s.cfg.VerifyToken {
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// ReceiveWebhook decodes inbound messages and hands each one to the engine.
// Messages are queued per sender so the gateway gets its acknowledgement quickly.
func (s *Server) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	if s.cfg.AppSecret != "" && !whatsapp.VerifySignature(body, r.Header.Get("X-Hub-Signature-256"), s.cfg.AppSecret) {
		s.logger.Warn("Webhook signature rejected", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	msgs, err := whatsapp.ParseWebhook(body)
	if err != nil {
		s.logger.Warn("Webhook payload rejected", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, msg := range msgs {
		if err := s.handle(r.Context(), msg); err != nil {
			s.logger.Error("Inbound message not queued", "from", msg.From, "id", msg.ID, "err", err)
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"received": len(msgs)})
}

func (s *Server) handle(ctx context.Context, msg domain.InboundMessage) error {
	run := func(ctx context.Context) {
		err := s.cfg.Engine.HandleInbound(ctx, msg)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrDuplicateMessage), errors.Is(err, domain.ErrOutOfOrder):
			s.logger.Debug("Inbound message skipped", "from", msg.From, "id", msg.ID, "reason", err)
		default:
			s.logger.Error("Inbound message failed", "from", msg.From, "id", msg.ID, "err", err)
		}
	}
	if s.cfg.Dispatcher == nil {
		run(context.WithoutCancel(ctx))
		return nil
	}
	return s.cfg.Dispatcher.Dispatch(ctx, msg.From, run)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sessions == nil {
		notImplemented(w)
		return
	}
	keys, err := s.cfg.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "List sessions", err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// GetSession handles GET /sessions/{key}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Engine.Session(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, "Get session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ResetSession handles DELETE /sessions/{key}.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Engine.Reset(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.fail(w, "Reset session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PauseSession handles POST /sessions/{key}/pause.
func (s *Server) PauseSession(w http.ResponseWriter, r *http.Request) {
	s.operatorAction(w, r, "Pause session", s.cfg.Engine.Pause)
}

// ResolveSession handles POST /sessions/{key}/resolve.
func (s *Server) ResolveSession(w http.ResponseWriter, r *http.Request) {
	s.operatorAction(w, r, "Resolve handover", s.cfg.Engine.ResolveHandover)
}

func (s *Server) operatorAction(w http.ResponseWriter, r *http.Request, name string, fn func(context.Context, string) error) {
	key := chi.URLParam(r, "key")
	if err := fn(r.Context(), key); err != nil {
		s.fail(w, name, err)
		return
	}
	s.logger.Info(name, "session", key)
	sess, err := s.cfg.Engine.Session(r.Context(), key)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type flowSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Triggers []string `json:"triggers,omitempty"`
	Active   bool     `json:"active"`
	Nodes    int      `json:"nodes"`
}

// ListFlows handles GET /flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Flows == nil {
		notImplemented(w)
		return
	}
	all, err := s.cfg.Flows.ListFlows(r.Context())
	if err != nil {
		s.fail(w, "List flows", err)
		return
	}
	out := make([]flowSummary, 0, len(all))
	for _, f := range all {
		out = append(out, flowSummary{ID: f.ID, Name: f.Name, Triggers: f.Triggers, Active: f.Active, Nodes: len(f.Nodes)})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetFlow handles GET /flows/{id}.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Flows == nil {
		notImplemented(w)
		return
	}
	flow, err := s.cfg.Flows.GetFlow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "Get flow", err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// SaveFlow handles POST /flows with a YAML or JSON flow document.
func (s *Server) SaveFlow(w http.ResponseWriter, r *http.Request) {
	store, ok := s.cfg.Flows.(ports.FlowStore)
	if !ok {
		notImplemented(w)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	flow, err := compiler.NewParser().Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := store.SaveFlow(r.Context(), flow); err != nil {
		s.fail(w, "Save flow", err)
		return
	}
	s.flowChanged(flow.ID)
	writeJSON(w, http.StatusCreated, flowSummary{ID: flow.ID, Name: flow.Name, Triggers: flow.Triggers, Active: flow.Active, Nodes: len(flow.Nodes)})
}

// DeleteFlow handles DELETE /flows/{id}.
func (s *Server) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	store, ok := s.cfg.Flows.(ports.FlowStore)
	if !ok {
		notImplemented(w)
		return
	}
	id := chi.URLParam(r, "id")
	if err := store.DeleteFlow(r.Context(), id); err != nil {
		s.fail(w, "Delete flow", err)
		return
	}
	s.flowChanged(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) flowChanged(id string) {
	s.logger.Info("Flow changed", "flow_id", id)
	if s.cfg.OnFlowChanged != nil {
		s.cfg.OnFlowChanged(id)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrFlowNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		s.logger.Error(op+" failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fmt.Sprintf("%s: %v", strings.ToLower(op), err)})
	}
}

func notImplemented(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotImplemented, errorBody{Error: "not configured"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
