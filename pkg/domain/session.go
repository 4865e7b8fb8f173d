package domain

import "time"

// DefaultHistoryLimit bounds the number of history entries kept per session.
const DefaultHistoryLimit = 50

// recentMessageLimit bounds the number of processed inbound ids remembered for deduplication.
const recentMessageLimit = 32

// Session is the durable execution state of one conversation.
type Session struct {
	// Key identifies the conversation (usually the remote phone number).
	Key string `json:"key"`

	// FlowID and NodeID point at the position the session is parked at.
	// An empty NodeID means the flow has not started or has finished.
	FlowID string `json:"flow_id"`
	NodeID string `json:"node_id"`

	// Awaiting is true when the current node already prompted and waits for input.
	Awaiting bool `json:"awaiting,omitempty"`

	// Variables is the user space of the variable context.
	Variables map[string]any `json:"variables"`

	// System holds engine-maintained values exposed to templates under "sys".
	System map[string]any `json:"system,omitempty"`

	Cart []LineItem `json:"cart,omitempty"`

	// Paused is set by handover and thread-control nodes, or by an operator.
	// While paused, no node executor runs for this session.
	Paused bool `json:"paused,omitempty"`

	// HeldInput is the most recent message received while paused.
	HeldInput *HeldInput `json:"held_input,omitempty"`

	// PendingTimer is set while a timer node waits to fire.
	PendingTimer *PendingTimer `json:"pending_timer,omitempty"`

	LastInboundAt  time.Time `json:"last_inbound_at,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at"`

	// RecentMessageIDs remembers processed inbound ids for at-least-once delivery.
	RecentMessageIDs []string `json:"recent_message_ids,omitempty"`

	History []HistoryEntry `json:"history,omitempty"`
}

// HeldInput is an inbound message kept while a session is paused.
type HeldInput struct {
	Text     string    `json:"text"`
	MediaURL string    `json:"media_url,omitempty"`
	At       time.Time `json:"at"`
}

// PendingTimer describes a scheduled continuation.
type PendingTimer struct {
	Token      string    `json:"token"`
	NodeID     string    `json:"node_id"`
	DueAt      time.Time `json:"due_at"`
	ShowTyping bool      `json:"show_typing,omitempty"`
}

// Direction of a history entry.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// HistoryEntry records one message exchanged in the conversation.
type HistoryEntry struct {
	At        time.Time `json:"at"`
	Direction string    `json:"direction"`
	Text      string    `json:"text"`
	NodeID    string    `json:"node_id,omitempty"`
}

// NewSession creates a clean session parked before the entry of flowID.
func NewSession(key, flowID string, now time.Time) *Session {
	return &Session{
		Key:            key,
		FlowID:         flowID,
		Variables:      make(map[string]any),
		System:         map[string]any{"phone": key},
		LastActivityAt: now,
	}
}

// Reset clears the position, variables, cart and timer, and parks the session before flowID.
// The pause flag and history are kept.
func (s *Session) Reset(flowID string) {
	s.FlowID = flowID
	s.NodeID = ""
	s.Awaiting = false
	s.Variables = make(map[string]any)
	s.System = map[string]any{"phone": s.Key}
	s.Cart = nil
	s.PendingTimer = nil
}

// AppendHistory adds an entry, dropping the oldest ones past limit.
func (s *Session) AppendHistory(entry HistoryEntry, limit int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.History = append(s.History, entry)
	if over := len(s.History) - limit; over > 0 {
		s.History = append([]HistoryEntry(nil), s.History[over:]...)
	}
}

// Seen reports whether the inbound message id was already processed.
func (s *Session) Seen(messageID string) bool {
	if messageID == "" {
		return false
	}
	for _, id := range s.RecentMessageIDs {
		if id == messageID {
			return true
		}
	}
	return false
}

// MarkSeen remembers a processed inbound message id.
func (s *Session) MarkSeen(messageID string) {
	if messageID == "" || s.Seen(messageID) {
		return
	}
	s.RecentMessageIDs = append(s.RecentMessageIDs, messageID)
	if over := len(s.RecentMessageIDs) - recentMessageLimit; over > 0 {
		s.RecentMessageIDs = append([]string(nil), s.RecentMessageIDs[over:]...)
	}
}

// CartTotal sums quantity times unit price over the cart.
func (s *Session) CartTotal() float64 {
	var total float64
	for _, item := range s.Cart {
		total += item.Subtotal()
	}
	return total
}

// Clone returns a deep copy of the session, safe to mutate independently.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Variables = CloneMap(s.Variables)
	c.System = CloneMap(s.System)
	if s.Cart != nil {
		c.Cart = append([]LineItem(nil), s.Cart...)
	}
	if s.HeldInput != nil {
		h := *s.HeldInput
		c.HeldInput = &h
	}
	if s.PendingTimer != nil {
		t := *s.PendingTimer
		c.PendingTimer = &t
	}
	if s.RecentMessageIDs != nil {
		c.RecentMessageIDs = append([]string(nil), s.RecentMessageIDs...)
	}
	if s.History != nil {
		c.History = append([]HistoryEntry(nil), s.History...)
	}
	return &c
}

// CloneMap deep-copies nested maps and slices of a variable map.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return make(map[string]any)
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneMap(item)
		}
		return out
	default:
		return v
	}
}
