package comanda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/comanda/internal/logging"
	"github.com/aretw0/comanda/internal/runtime"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/flows"
	"github.com/aretw0/comanda/pkg/intake"
	"github.com/aretw0/comanda/pkg/orderparse"
	"github.com/aretw0/comanda/pkg/ports"
	"github.com/aretw0/comanda/pkg/session"
	"github.com/aretw0/comanda/pkg/timer"
)

// DefaultEscapeCommands reset a conversation to the default flow from any point.
var DefaultEscapeCommands = []string{"menu", "salir", "cancelar"}

// Texts is the set of user-facing texts the engine produces on its own.
type Texts = runtime.Texts

// OutboundSubmitter runs delivery functions, keeping the order of those
// submitted for the same key. dispatch.Outbound implements it.
type OutboundSubmitter interface {
	Submit(key string, fn func()) error
}

// Engine is the entry point of the library. It receives inbound messages,
// advances the conversation flow under a per-conversation lock, persists the
// session and delivers the resulting messages.
type Engine struct {
	store    ports.SessionStore
	repo     ports.FlowRepository
	sender   ports.Sender
	notifier ports.AttentionNotifier
	locker   ports.DistributedLocker
	catalog  ports.Catalog
	orders   ports.OrderCreator
	claims   ports.ClaimCreator
	renderer ports.DocumentRenderer
	outbound OutboundSubmitter

	defaultFlow    string
	escape         map[string]bool
	maxTransitions int
	flowTTL        time.Duration
	intake         intake.Sanitizer
	texts          *Texts
	clock          timer.Clock
	hooks          domain.LifecycleHooks
	logger         *slog.Logger

	sessions  *session.Manager
	graphs    *flows.Cache
	interp    *runtime.Interpreter
	scheduler *timer.Scheduler
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSessionStore sets where conversation state is persisted. Required.
func WithSessionStore(s ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithFlows sets the flow repository. Required.
func WithFlows(repo ports.FlowRepository) Option {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithSender sets the messaging transport.
func WithSender(s ports.Sender) Option {
	return func(e *Engine) {
		e.sender = s
	}
}

// WithCatalog sets the product catalog read by catalog and stock nodes.
func WithCatalog(c ports.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithOrders sets where confirmed carts are turned into orders.
func WithOrders(o ports.OrderCreator) Option {
	return func(e *Engine) {
		e.orders = o
	}
}

// WithClaims sets where claim nodes file customer reports.
func WithClaims(c ports.ClaimCreator) Option {
	return func(e *Engine) {
		e.claims = c
	}
}

// WithRenderer sets the document generator used by document nodes.
func WithRenderer(r ports.DocumentRenderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithNotifier sets who is alerted when a conversation is handed to a human.
func WithNotifier(n ports.AttentionNotifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithLocker adds a distributed lock so several engine replicas can share a store.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxTransitions sets how many automatic transitions one step may take.
func WithMaxTransitions(n int) Option {
	return func(e *Engine) {
		e.maxTransitions = n
	}
}

// WithDefaultFlow sets the flow started when no trigger matches and after escape commands.
func WithDefaultFlow(flowID string) Option {
	return func(e *Engine) {
		e.defaultFlow = flowID
	}
}

// WithEscapeCommands replaces the default escape commands. Matching ignores case and accents.
func WithEscapeCommands(commands ...string) Option {
	return func(e *Engine) {
		e.escape = make(map[string]bool, len(commands))
		for _, c := range commands {
			e.escape[orderparse.Fold(c)] = true
		}
	}
}

// WithClock overrides the time source used for timestamps and timers.
func WithClock(clock timer.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithOutbound runs deliveries through s instead of on the calling goroutine.
func WithOutbound(s OutboundSubmitter) Option {
	return func(e *Engine) {
		e.outbound = s
	}
}

// WithFlowCacheTTL sets how long compiled flows are reused before re-reading the repository.
func WithFlowCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.flowTTL = ttl
	}
}

// WithMaxInputChars bounds inbound text length in characters. Longer messages
// are rejected. Zero keeps the gateway limit.
func WithMaxInputChars(n int) Option {
	return func(e *Engine) {
		e.intake.MaxChars = n
	}
}

// WithTexts overrides the built-in user-facing texts. Empty fields keep their default.
func WithTexts(t Texts) Option {
	return func(e *Engine) {
		e.texts = &t
	}
}

// New creates an engine. A session store and a flow repository are required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		flowTTL: flows.DefaultTTL,
		clock:   timer.Real{},
	}
	WithEscapeCommands(DefaultEscapeCommands...)(e)
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		return nil, domain.ErrNoSessionStore
	}
	if e.repo == nil {
		return nil, errors.New("comanda: flow repository is required")
	}

	managerOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, managerOpts...)

	e.graphs = flows.NewCache(e.repo,
		flows.WithTTL(e.flowTTL),
		flows.WithLogger(e.logger),
		flows.WithWarningHandler(e.hooks.OnWarning),
	)

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithMaxTransitions(e.maxTransitions),
		runtime.WithClock(e.clock.Now),
	}
	if e.catalog != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithCatalog(e.catalog))
	}
	if e.orders != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithOrders(e.orders))
	}
	if e.claims != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithClaims(e.claims))
	}
	if e.renderer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithRenderer(e.renderer))
	}
	if e.texts != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTexts(*e.texts))
	}
	e.interp = runtime.New(e.graphs, runtimeOpts...)
	e.scheduler = timer.NewScheduler(e.clock, e.fireTimer)

	return e, nil
}

// Flows returns the compiled flow cache.
func (e *Engine) Flows() *flows.Cache {
	return e.graphs
}

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Texts returns the user-facing texts in use.
func (e *Engine) Texts() Texts {
	return e.interp.Texts()
}

// Close cancels in-process timers. Pending timers stay persisted and are
// rescheduled by RecoverTimers on the next start.
func (e *Engine) Close() {
	e.scheduler.Stop()
}

// effects are the side effects of a locked operation, performed after the lock is released.
type effects struct {
	key       string
	outbound  []domain.OutboundMessage
	attention []runtime.Attention
	timer     *domain.PendingTimer
	cancel    bool
}

// HandleInbound processes one inbound message. Redelivered message ids return
// an error wrapping domain.ErrDuplicateMessage and have no effect.
func (e *Engine) HandleInbound(ctx context.Context, msg domain.InboundMessage) error {
	if msg.From == "" {
		return errors.New("comanda: inbound message without sender")
	}
	text, err := e.intake.Sanitize(msg.Text)
	if err != nil {
		return fmt.Errorf("inbound %s: %w", msg.ID, err)
	}
	msg.Text = text
	now := e.clock.Now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}

	fx := &effects{key: msg.From}
	err = e.sessions.WithLock(ctx, msg.From, func(ctx context.Context) error {
		sess, _, err := session.LoadOrCreate(ctx, e.store, msg.From, e.defaultFlow, now)
		if err != nil {
			return err
		}
		if sess.Seen(msg.ID) {
			return fmt.Errorf("message %s: %w", msg.ID, domain.ErrDuplicateMessage)
		}
		if !sess.LastInboundAt.IsZero() && msg.Timestamp.Before(sess.LastInboundAt) {
			return fmt.Errorf("message %s at %s precedes %s: %w",
				msg.ID, msg.Timestamp.Format(time.RFC3339), sess.LastInboundAt.Format(time.RFC3339), domain.ErrOutOfOrder)
		}

		sess.MarkSeen(msg.ID)
		sess.LastInboundAt = msg.Timestamp
		sess.LastActivityAt = now
		sess.AppendHistory(domain.HistoryEntry{
			At:        msg.Timestamp,
			Direction: domain.DirectionIn,
			Text:      inboundSummary(msg),
			NodeID:    sess.NodeID,
		}, domain.DefaultHistoryLimit)

		if sess.Paused {
			sess.HeldInput = &domain.HeldInput{Text: msg.Text, MediaURL: msg.MediaURL, At: msg.Timestamp}
			return e.store.Save(ctx, msg.From, sess)
		}

		if e.escape[orderparse.Fold(msg.Text)] {
			flowID := e.defaultFlow
			if flowID == "" {
				flowID = sess.FlowID
			}
			sess.Reset(flowID)
			fx.cancel = true
		} else if sess.PendingTimer != nil {
			return e.store.Save(ctx, msg.From, sess)
		} else if sess.NodeID == "" {
			e.selectFlow(ctx, sess, msg.Text)
		}

		if sess.FlowID == "" {
			e.logger.Warn("no flow to run; configure a default flow", "session", msg.From)
			return e.store.Save(ctx, msg.From, sess)
		}

		return e.step(ctx, sess, &runtime.Input{Text: msg.Text, MediaURL: msg.MediaURL}, fx)
	})
	if err != nil {
		return err
	}
	e.apply(ctx, fx)
	return nil
}

// selectFlow restarts an idle session on the flow whose trigger matches text,
// or on the default flow.
func (e *Engine) selectFlow(ctx context.Context, sess *domain.Session, text string) {
	g, err := e.graphs.ByTrigger(ctx, text)
	if err == nil {
		sess.Reset(g.ID())
		return
	}
	if !errors.Is(err, domain.ErrFlowNotFound) {
		e.logger.Error("failed to match flow triggers", "session", sess.Key, "err", err)
	}
	flowID := e.defaultFlow
	if flowID == "" {
		flowID = sess.FlowID
	}
	sess.Reset(flowID)
}

// step runs the interpreter and persists the outcome. Must be called under the session lock.
func (e *Engine) step(ctx context.Context, sess *domain.Session, in *runtime.Input, fx *effects) error {
	res, err := e.interp.Step(ctx, sess, in)
	if errors.Is(err, domain.ErrFlowNotFound) && e.defaultFlow != "" && sess.FlowID != e.defaultFlow {
		e.logger.Warn("session flow no longer exists; restarting default flow",
			"session", sess.Key, "flow", sess.FlowID)
		sess.Reset(e.defaultFlow)
		res, err = e.interp.Step(ctx, sess, in)
	}
	if errors.Is(err, domain.ErrLoopGuard) {
		fx.outbound = append(fx.outbound, domain.TextMessage(sess.Key, e.interp.Texts().LoopGuard))
		return e.store.Save(ctx, sess.Key, sess)
	}
	if err != nil {
		return fmt.Errorf("step session %s: %w", sess.Key, err)
	}

	if err := e.store.Save(ctx, sess.Key, res.Session); err != nil {
		return err
	}
	fx.outbound = append(fx.outbound, res.Outbound...)
	fx.attention = append(fx.attention, res.Attention...)
	fx.timer = res.Session.PendingTimer
	return nil
}

// apply performs the side effects collected under the lock.
func (e *Engine) apply(ctx context.Context, fx *effects) {
	if fx.cancel && fx.timer == nil {
		e.scheduler.Cancel(fx.key)
	}
	if fx.timer != nil {
		e.scheduler.Schedule(fx.key, fx.timer.Token, fx.timer.DueAt)
		if fx.timer.ShowTyping {
			if tn, ok := e.sender.(ports.TypingNotifier); ok {
				if err := tn.SendTyping(ctx, fx.key); err != nil {
					e.logger.Debug("typing indicator failed", "session", fx.key, "err", err)
				}
			}
		}
	}
	if e.notifier != nil {
		for _, a := range fx.attention {
			e.notifier.NotifyAttention(ctx, a.Key, a.Reason)
		}
	}
	e.deliver(ctx, fx.key, fx.outbound)
}

func (e *Engine) deliver(ctx context.Context, key string, msgs []domain.OutboundMessage) {
	if len(msgs) == 0 {
		return
	}
	if e.sender == nil {
		e.logger.Warn("no sender configured; dropping outbound messages", "session", key, "count", len(msgs))
		return
	}
	ctx = context.WithoutCancel(ctx)
	send := func() {
		for _, m := range msgs {
			if _, err := e.sender.Send(ctx, m); err != nil {
				e.logger.Error("failed to send message", "session", key, "err", err)
				if e.hooks.OnSendError != nil {
					e.hooks.OnSendError(ctx, key, err)
				}
			}
		}
	}
	if e.outbound == nil {
		send()
		return
	}
	if err := e.outbound.Submit(key, send); err != nil {
		e.logger.Warn("outbound submit failed, sending inline", "session", key, "err", err)
		send()
	}
}

// fireTimer continues the session parked at a timer node. Stale tokens are ignored.
func (e *Engine) fireTimer(key, token string) {
	ctx := context.Background()
	fx := &effects{key: key}
	err := e.sessions.WithLock(ctx, key, func(ctx context.Context) error {
		sess, err := e.store.Load(ctx, key)
		if err != nil {
			return err
		}
		if sess.PendingTimer == nil || sess.PendingTimer.Token != token {
			e.logger.Debug("ignoring stale timer", "session", key, "token", token)
			return nil
		}
		if sess.Paused {
			return nil
		}
		return e.step(ctx, sess, &runtime.Input{TimerToken: token}, fx)
	})
	if err != nil {
		e.logger.Error("timer continuation failed", "session", key, "err", err)
		return
	}
	e.apply(ctx, fx)
}

// ResolveHandover returns a paused conversation to automation. The message
// received while paused, if any, is fed to the current node.
func (e *Engine) ResolveHandover(ctx context.Context, key string) error {
	fx := &effects{key: key}
	err := e.sessions.WithLock(ctx, key, func(ctx context.Context) error {
		sess, err := e.store.Load(ctx, key)
		if err != nil {
			return err
		}
		sess.Paused = false
		held := sess.HeldInput
		sess.HeldInput = nil

		if sess.PendingTimer != nil {
			fx.timer = sess.PendingTimer
			return e.store.Save(ctx, key, sess)
		}
		if sess.FlowID == "" || (sess.NodeID == "" && held == nil) {
			return e.store.Save(ctx, key, sess)
		}
		if sess.NodeID == "" {
			e.selectFlow(ctx, sess, held.Text)
		}

		var in *runtime.Input
		if held != nil {
			in = &runtime.Input{Text: held.Text, MediaURL: held.MediaURL}
		}
		return e.step(ctx, sess, in, fx)
	})
	if err != nil {
		return err
	}
	e.apply(ctx, fx)
	return nil
}

// Pause stops automation for key until ResolveHandover. Unknown keys get a
// paused session so early messages are held as well.
func (e *Engine) Pause(ctx context.Context, key string) error {
	return e.sessions.WithLock(ctx, key, func(ctx context.Context) error {
		sess, _, err := session.LoadOrCreate(ctx, e.store, key, e.defaultFlow, e.clock.Now())
		if err != nil {
			return err
		}
		sess.Paused = true
		return e.store.Save(ctx, key, sess)
	})
}

// Reset deletes the conversation state of key and cancels its timer.
func (e *Engine) Reset(ctx context.Context, key string) error {
	if err := e.sessions.Delete(ctx, key); err != nil {
		return err
	}
	e.scheduler.Cancel(key)
	return nil
}

// Session returns the current state of key.
func (e *Engine) Session(ctx context.Context, key string) (*domain.Session, error) {
	return e.sessions.Load(ctx, key)
}

// RecoverTimers reschedules the persisted pending timers of every session.
// Timers already due fire immediately.
func (e *Engine) RecoverTimers(ctx context.Context) (int, error) {
	keys, err := e.sessions.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, key := range keys {
		sess, err := e.store.Load(ctx, key)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if sess.PendingTimer != nil {
			e.scheduler.Schedule(key, sess.PendingTimer.Token, sess.PendingTimer.DueAt)
			n++
		}
	}
	e.logger.Info("recovered pending timers", "count", n)
	return n, nil
}

func inboundSummary(msg domain.InboundMessage) string {
	switch {
	case msg.MediaURL != "" && msg.Text != "":
		return "[media] " + msg.Text
	case msg.MediaURL != "":
		return "[media] " + msg.MediaURL
	default:
		return strings.TrimSpace(msg.Text)
	}
}
