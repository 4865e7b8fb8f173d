package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session key cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrFlowNotFound is returned when a flow id or trigger does not resolve to an active flow.
var ErrFlowNotFound = errors.New("flow not found")

// ErrNodeNotFound is returned when a node id is absent from a flow.
var ErrNodeNotFound = errors.New("node not found")

// ErrLoopGuard is returned when a step exceeds the maximum number of automatic transitions.
var ErrLoopGuard = errors.New("loop guard tripped")

// ErrOutOfOrder is returned when an inbound message is older than the last processed one.
var ErrOutOfOrder = errors.New("inbound message out of order")

// ErrDuplicateMessage is returned when an inbound message id was already processed.
var ErrDuplicateMessage = errors.New("duplicate inbound message")

// ErrNoSessionStore is returned when an engine is built without session persistence.
var ErrNoSessionStore = errors.New("no session store configured")

// FailureKind classifies why a node executor could not complete.
type FailureKind string

const (
	// FailureCollaborator means an external side-effecting service failed.
	FailureCollaborator FailureKind = "collaborator"
	// FailureAuthoring means the flow is misconfigured in a way that cannot be defaulted.
	FailureAuthoring FailureKind = "authoring"
)

// CollaboratorError wraps a failure reported by an external collaborator
// (order creation, claim creation, catalog lookup, document rendering).
type CollaboratorError struct {
	NodeID       string
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("node %s: %s failed: %v", e.NodeID, e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// AuthoringError reports a flow misconfiguration that prevents a node from running
// (e.g. a create-order node with no order collaborator configured).
type AuthoringError struct {
	FlowID string
	NodeID string
	Reason string
}

func (e *AuthoringError) Error() string {
	return fmt.Sprintf("flow %s node %s: %s", e.FlowID, e.NodeID, e.Reason)
}
