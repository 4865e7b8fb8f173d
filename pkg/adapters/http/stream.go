package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/ports"
)

// Event is a conversation update pushed to operator consoles.
type Event struct {
	Session   string                 `json:"session"`
	Message   *domain.OutboundMessage `json:"message,omitempty"`
	MessageID string                 `json:"message_id,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Attention string                 `json:"attention,omitempty"`
	At        time.Time              `json:"at"`
}

// StreamManager fans events out to SSE subscribers. Subscribing to "" receives
// events of every session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(session string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[session]; !ok {
		sm.subscribers[session] = make(map[chan<- string]struct{})
	}
	sm.subscribers[session][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[session]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, session)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	keys := []string{""}
	if ev.Session != "" {
		keys = append(keys, ev.Session)
	}
	for _, key := range keys {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- string(payload):
			default:
				// slow client
				sm.logger.Warn("SSE: Client buffer full, dropping event", "session", ev.Session)
			}
		}
	}
}

// NotifyAttention implements ports.AttentionNotifier by pushing an attention event.
func (sm *StreamManager) NotifyAttention(ctx context.Context, key, reason string) {
	sm.logger.Warn("Conversation needs attention", "session", key, "reason", reason)
	sm.Broadcast(Event{Session: key, Attention: reason, At: time.Now()})
}

// StreamingSender decorates a sender so every delivery attempt is broadcast.
type StreamingSender struct {
	next    ports.Sender
	streams *StreamManager
	now     func() time.Time
}

// NewStreamingSender wraps next.
func NewStreamingSender(next ports.Sender, streams *StreamManager) *StreamingSender {
	return &StreamingSender{next: next, streams: streams, now: time.Now}
}

func (s *StreamingSender) Send(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	id, err := s.next.Send(ctx, msg)
	ev := Event{Session: msg.To, Message: &msg, MessageID: id, At: s.now()}
	if err != nil {
		ev.Error = err.Error()
	}
	s.streams.Broadcast(ev)
	return id, err
}

// SendTyping forwards to the wrapped sender when it supports typing indicators.
func (s *StreamingSender) SendTyping(ctx context.Context, to string) error {
	if tn, ok := s.next.(ports.TypingNotifier); ok {
		return tn.SendTyping(ctx, to)
	}
	return nil
}

// SubscribeEvents handles GET /events?session=<key> (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Streams == nil {
		notImplemented(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	session := r.URL.Query().Get("session")
	ch, cancel := s.cfg.Streams.Subscribe(session)
	defer cancel()
	s.logger.Info("SSE: Subscribed", "session", session)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
