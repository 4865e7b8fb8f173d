package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/comanda/internal/logging"
	"github.com/aretw0/comanda/pkg/conditions"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/graph"
	"github.com/aretw0/comanda/pkg/ports"
	"github.com/aretw0/comanda/pkg/variables"
)

// DefaultMaxTransitions bounds the automatic transitions of a single step.
const DefaultMaxTransitions = 50

// GraphSource resolves flow ids to compiled graphs. flows.Cache implements it.
type GraphSource interface {
	Graph(ctx context.Context, flowID string) (*graph.Graph, error)
}

// Input is the event that drives a step. A nil *Input starts or resumes a flow
// without user input (flow entry, operator resolve).
type Input struct {
	Text     string
	MediaURL string
	// TimerToken is set when the step is driven by a timer firing.
	TimerToken string
}

// Attention is a request to alert human operators.
type Attention struct {
	Key    string
	Reason string
}

// StepResult is the outcome of one interpreter invocation.
type StepResult struct {
	Session  *domain.Session
	Outbound []domain.OutboundMessage
	// Halted is true when the session is parked at a node waiting for an event.
	// It is false when the flow finished or automation was paused mid-flow.
	Halted      bool
	Attention   []Attention
	Warnings    []domain.Warning
	Transitions int
	// Restarted is true when the session pointed at a missing node and was reset.
	Restarted bool
}

// Interpreter runs flows node by node. It holds no per-session state and is
// safe for concurrent use; callers serialize steps per session key.
type Interpreter struct {
	graphs     GraphSource
	catalog    ports.Catalog
	orders     ports.OrderCreator
	claims     ports.ClaimCreator
	renderer   ports.DocumentRenderer
	conditions *conditions.Evaluator

	now            func() time.Time
	maxTransitions int
	historyLimit   int
	texts          Texts
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
}

// Option configures the Interpreter.
type Option func(*Interpreter)

// WithCatalog sets the product catalog used by catalog and stock nodes.
func WithCatalog(c ports.Catalog) Option { return func(i *Interpreter) { i.catalog = c } }

// WithOrders sets the collaborator that create_order nodes call.
func WithOrders(o ports.OrderCreator) Option { return func(i *Interpreter) { i.orders = o } }

// WithClaims sets the collaborator that claim nodes call.
func WithClaims(c ports.ClaimCreator) Option { return func(i *Interpreter) { i.claims = c } }

// WithRenderer sets the document renderer used by document nodes.
func WithRenderer(r ports.DocumentRenderer) Option { return func(i *Interpreter) { i.renderer = r } }

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(i *Interpreter) {
		i.hooks = hooks
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

// WithMaxTransitions sets the loop guard limit.
func WithMaxTransitions(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxTransitions = n
		}
	}
}

// WithHistoryLimit bounds the per-session history.
func WithHistoryLimit(n int) Option {
	return func(i *Interpreter) {
		i.historyLimit = n
	}
}

// WithClock overrides the time source (timer due dates, history timestamps).
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) {
		i.now = now
	}
}

// WithTexts overrides the built-in user-facing texts.
func WithTexts(t Texts) Option {
	return func(i *Interpreter) {
		i.texts = t.withDefaults()
	}
}

// New creates an interpreter reading flows from graphs.
func New(graphs GraphSource, opts ...Option) *Interpreter {
	it := &Interpreter{
		graphs:         graphs,
		conditions:     conditions.NewEvaluator(),
		now:            time.Now,
		maxTransitions: DefaultMaxTransitions,
		historyLimit:   domain.DefaultHistoryLimit,
		texts:          Texts{}.withDefaults(),
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Texts returns the user-facing texts in use.
func (it *Interpreter) Texts() Texts {
	return it.texts
}

// Step advances sess with the given input until a node halts, the flow ends,
// automation is paused or the loop guard trips. sess is not modified; the new
// state is returned in StepResult.Session.
//
// A tripped loop guard returns an error wrapping domain.ErrLoopGuard and no result,
// so the caller keeps the last persisted state.
func (it *Interpreter) Step(ctx context.Context, sess *domain.Session, in *Input) (*StepResult, error) {
	start := it.now()
	work := sess.Clone()
	if work.System == nil {
		work.System = map[string]any{"phone": work.Key}
	}
	res := &StepResult{Session: work}

	g, err := it.graphs.Graph(ctx, work.FlowID)
	if err != nil {
		return nil, fmt.Errorf("load flow %q: %w", work.FlowID, err)
	}

	if work.NodeID == "" {
		work.NodeID = g.Entry()
		work.Awaiting = false
	}
	if _, err := g.ResolveNode(work.NodeID); errors.Is(err, domain.ErrNodeNotFound) {
		it.warn(ctx, res, domain.Warning{
			FlowID:  g.ID(),
			NodeID:  work.NodeID,
			Code:    domain.WarnNodeReset,
			Message: "session pointed at a missing node; restarted at entry",
		})
		work.Reset(work.FlowID)
		work.NodeID = g.Entry()
		res.Restarted = true
		in = nil
		it.say(res, it.texts.Restarted)
	}

	vars := variables.New(work.Variables, work.System)
	if in != nil && in.Text != "" {
		vars.SetSystem("last_input", in.Text)
	}

	pending := in
	for {
		node, err := g.ResolveNode(work.NodeID)
		if err != nil {
			return nil, err
		}

		x := &execution{
			ctx:      ctx,
			it:       it,
			graph:    g,
			node:     node,
			session:  work,
			vars:     vars,
			result:   res,
			resuming: work.Awaiting,
		}
		if x.resuming {
			x.input = pending
			pending = nil
		} else {
			it.emitNode(ctx, domain.EventNodeEnter, work, node, "")
		}

		r := it.execute(x)
		it.emitNode(ctx, domain.EventNodeLeave, work, node, r.Outcome.String())

		if r.Outcome != Continue {
			// a first visit that fails re-runs the node's prompt on the next event
			work.Awaiting = r.Outcome == Halt || x.resuming
			res.Halted = true
			if r.Outcome == Fail {
				it.logger.Warn("node failed",
					"session", work.Key, "flow", g.ID(), "node", node.ID,
					"kind", r.Kind, "err", r.Err)
				msg := r.Message
				if msg == "" {
					msg = it.texts.Failure
				}
				it.say(res, vars.Interpolate(msg))
			}
			break
		}

		work.Awaiting = false
		if r.Jump != nil {
			g = r.Jump
			work.FlowID = g.ID()
			work.NodeID = g.Entry()
		} else {
			target, fellBack, ok := g.Next(node.ID, r.Handle)
			if fellBack {
				it.warn(ctx, res, domain.Warning{
					FlowID:  g.ID(),
					NodeID:  node.ID,
					Code:    domain.WarnMissingEdge,
					Message: fmt.Sprintf("no edge for handle %q", r.Handle),
				})
			}
			if !ok {
				work.NodeID = ""
				break
			}
			work.NodeID = target
			if r.Forward && x.input != nil {
				if tn, err := g.ResolveNode(target); err == nil && tn.Kind.TakesAnswer() {
					work.Awaiting = true
					pending = x.input
				}
			}
		}

		res.Transitions++
		if res.Transitions > it.maxTransitions {
			it.logger.Error("loop guard tripped",
				"session", work.Key, "flow", g.ID(), "node", node.ID, "transitions", res.Transitions)
			err := fmt.Errorf("%w: flow %s node %s after %d transitions", domain.ErrLoopGuard, g.ID(), node.ID, res.Transitions)
			it.emitStep(ctx, work, res, start, err)
			return nil, err
		}
		if work.Paused {
			break
		}
	}

	work.LastActivityAt = it.now()
	for _, m := range res.Outbound {
		work.AppendHistory(domain.HistoryEntry{
			At:        work.LastActivityAt,
			Direction: domain.DirectionOut,
			Text:      m.Summary(),
			NodeID:    work.NodeID,
		}, it.historyLimit)
	}
	it.emitStep(ctx, work, res, start, nil)
	return res, nil
}

func (it *Interpreter) execute(x *execution) Result {
	exec, ok := executors[x.node.Kind]
	if !ok {
		return fail(domain.FailureAuthoring, &domain.AuthoringError{
			FlowID: x.graph.ID(),
			NodeID: x.node.ID,
			Reason: fmt.Sprintf("unsupported node kind %q", x.node.Kind),
		}, "")
	}
	return exec(x)
}

func (it *Interpreter) say(res *StepResult, text string) {
	if text == "" {
		return
	}
	res.Outbound = append(res.Outbound, domain.TextMessage(res.Session.Key, text))
}

func (it *Interpreter) warn(ctx context.Context, res *StepResult, w domain.Warning) {
	res.Warnings = append(res.Warnings, w)
	it.logger.Warn("flow authoring issue",
		"flow_id", w.FlowID, "node_id", w.NodeID, "warning", w.Code, "msg", w.Message)
	if it.hooks.OnWarning != nil {
		it.hooks.OnWarning(ctx, w)
	}
}
