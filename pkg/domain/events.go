package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
	EventStep      EventType = "step"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionKey string    `json:"session_key"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	FlowID   string   `json:"flow_id"`
	NodeID   string   `json:"node_id"`
	NodeKind NodeKind `json:"node_kind"`
	// Outcome is set on leave events: "continue", "halt" or "fail".
	Outcome string `json:"outcome,omitempty"`
}

// StepEvent summarizes one interpreter invocation.
type StepEvent struct {
	EventBase
	FlowID      string        `json:"flow_id"`
	NodeID      string        `json:"node_id"`
	Transitions int           `json:"transitions"`
	Halted      bool          `json:"halted"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnStep      func(context.Context, *StepEvent)
	OnWarning   func(context.Context, Warning)
	OnSendError func(ctx context.Context, to string, err error)
}
