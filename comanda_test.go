package comanda_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/comanda"
	"github.com/aretw0/comanda/pkg/adapters/memory"
	"github.com/aretw0/comanda/pkg/dispatch"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/dsl"
	"github.com/aretw0/comanda/pkg/intake"
	"github.com/aretw0/comanda/pkg/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phone = "5491155550000"

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	engine *comanda.Engine
	store  *memory.Store
	outbox *memory.Outbox
	orders *memory.Orders
	clock  *timer.Manual
	seq    int
}

func newHarness(t *testing.T, defaultFlow string, fs []*domain.Flow, opts ...comanda.Option) *harness {
	t.Helper()
	h := &harness{
		store:  memory.NewStore(),
		outbox: memory.NewOutbox(),
		orders: memory.NewOrders(),
		clock:  timer.NewManual(start),
	}
	base := []comanda.Option{
		comanda.WithSessionStore(h.store),
		comanda.WithFlows(memory.NewFlowRepository(fs...)),
		comanda.WithSender(h.outbox),
		comanda.WithNotifier(h.outbox),
		comanda.WithRenderer(h.outbox),
		comanda.WithCatalog(memory.NewCatalog(
			domain.Product{ID: "p1", Name: "Coca Cola", Price: 1500, Stock: 10},
			domain.Product{ID: "p2", Name: "Pan Integral", Price: 900, Stock: 5},
			domain.Product{ID: "p3", Name: "Leche Entera", Price: 1200, Stock: 3},
		)),
		comanda.WithOrders(h.orders),
		comanda.WithClaims(h.orders),
		comanda.WithDefaultFlow(defaultFlow),
		comanda.WithClock(h.clock),
		comanda.WithMaxTransitions(20),
	}
	eng, err := comanda.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	h.engine = eng
	return h
}

// send delivers text as a new message one second after the previous one.
func (h *harness) send(t *testing.T, text string) []string {
	t.Helper()
	before := len(h.outbox.Texts(phone))
	h.seq++
	err := h.engine.HandleInbound(context.Background(), domain.InboundMessage{
		ID:        fmt.Sprintf("wamid.%d", h.seq),
		From:      phone,
		Text:      text,
		Timestamp: start.Add(time.Duration(h.seq) * time.Second),
	})
	require.NoError(t, err)
	return h.outbox.Texts(phone)[before:]
}

func (h *harness) session(t *testing.T) *domain.Session {
	t.Helper()
	sess, err := h.engine.Session(context.Background(), phone)
	require.NoError(t, err)
	return sess
}

func menuFlow() *domain.Flow {
	b := dsl.New("menu").Triggers("hola", "menu")
	b.Add("menu").Poll("¿Qué necesitás?", "choice", "Hacer pedido", "Soporte", "Pedido mayorista").
		Option(0, "order").Option(1, "support").Option(2, "wholesale")
	b.Add("order").Jump("shop")
	b.Add("support").Handover("Ya te atiende alguien del equipo.", "soporte").Go("after")
	b.Add("after").Message("¿Algo más, {{choice}}?")
	b.Add("wholesale").Message("Escribinos a ventas@example.com")
	return b.MustBuild()
}

func shopFlow() *domain.Flow {
	b := dsl.New("shop").Triggers("pedido")
	b.Add("catalog").Catalog("Nuestros productos:", "items", true).Go("summary")
	b.Add("summary").OrderSummary("").Go("confirm")
	b.Add("confirm").CreateOrder("Pedido {{order_id}} confirmado")
	return b.MustBuild()
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := comanda.New(comanda.WithFlows(memory.NewFlowRepository()))
	assert.ErrorIs(t, err, domain.ErrNoSessionStore)
}

func TestEngine_PollScenario(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow(), shopFlow()})

	texts := h.send(t, "Hola!")
	assert.Equal(t, []string{"¿Qué necesitás?\n1. Hacer pedido\n2. Soporte\n3. Pedido mayorista"}, texts)

	texts = h.send(t, "mayorista")
	assert.Equal(t, []string{"Escribinos a ventas@example.com"}, texts)

	sess := h.session(t)
	assert.Equal(t, "Pedido mayorista", sess.Variables["choice"])
	assert.Equal(t, "", sess.NodeID, "flow finished")
	assert.Equal(t, "mayorista", sess.System["last_input"])
}

func TestEngine_CartRoundTrip(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow(), shopFlow()})

	h.send(t, "hola")
	texts := h.send(t, "1")
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Nuestros productos:")

	texts = h.send(t, "2 coca cola\n3 panes integrales")
	require.Len(t, texts, 2)
	assert.Equal(t, "Resumen de tu pedido:\n2 x Coca Cola $3000\n3 x Pan Integral $2700\nTotal: $5700", texts[0])

	orders := h.orders.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, phone, orders[0].CustomerRef)
	assert.Equal(t, "Pedido "+orders[0].ID+" confirmado", texts[1])
}

func TestEngine_DuplicateMessageIsIgnored(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow()})
	ctx := context.Background()
	msg := domain.InboundMessage{ID: "wamid.dup", From: phone, Text: "hola", Timestamp: start}

	require.NoError(t, h.engine.HandleInbound(ctx, msg))
	err := h.engine.HandleInbound(ctx, msg)
	assert.ErrorIs(t, err, domain.ErrDuplicateMessage)

	assert.Len(t, h.outbox.Sent(), 1, "redelivery produces no output")
	assert.Len(t, h.session(t).History, 2)
}

func TestEngine_OutOfOrderMessageIsRejected(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow()})
	ctx := context.Background()

	require.NoError(t, h.engine.HandleInbound(ctx, domain.InboundMessage{ID: "b", From: phone, Text: "hola", Timestamp: start.Add(time.Minute)}))
	err := h.engine.HandleInbound(ctx, domain.InboundMessage{ID: "a", From: phone, Text: "2", Timestamp: start})
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)
	assert.Equal(t, "menu", h.session(t).NodeID)
}

func TestEngine_PausedSessionRunsNoNodes(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow()})

	h.send(t, "hola")
	texts := h.send(t, "soporte")
	assert.Equal(t, []string{"Ya te atiende alguien del equipo."}, texts)
	assert.Equal(t, []memory.Attention{{Key: phone, Reason: "soporte"}}, h.outbox.Attention())

	texts = h.send(t, "¿hola? ¿hay alguien?")
	assert.Empty(t, texts)
	texts = h.send(t, "sigo esperando")
	assert.Empty(t, texts)

	sess := h.session(t)
	assert.True(t, sess.Paused)
	assert.Equal(t, "support", sess.NodeID)
	require.NotNil(t, sess.HeldInput)
	assert.Equal(t, "sigo esperando", sess.HeldInput.Text)
	assert.Equal(t, "sigo esperando", sess.History[len(sess.History)-1].Text, "held messages are kept in history")

	require.NoError(t, h.engine.ResolveHandover(context.Background(), phone))
	assert.Equal(t, "¿Algo más, Soporte?", h.outbox.Texts(phone)[len(h.outbox.Texts(phone))-1])

	sess = h.session(t)
	assert.False(t, sess.Paused)
	assert.Nil(t, sess.HeldInput)
}

func TestEngine_AnswerHeldDuringHandoverReachesNextQuestion(t *testing.T) {
	b := dsl.New("care")
	b.Add("human").Handover("Te paso con alguien", "datos").Go("name")
	b.Add("name").Question("¿Tu nombre?", "nombre").Go("thanks")
	b.Add("thanks").Message("Gracias {{nombre}}")
	h := newHarness(t, "care", []*domain.Flow{b.MustBuild()})

	assert.Equal(t, []string{"Te paso con alguien"}, h.send(t, "hola"))
	assert.Empty(t, h.send(t, "Ana"))

	before := len(h.outbox.Texts(phone))
	require.NoError(t, h.engine.ResolveHandover(context.Background(), phone))
	assert.Equal(t, []string{"Gracias Ana"}, h.outbox.Texts(phone)[before:])
	assert.Equal(t, "Ana", h.session(t).Variables["nombre"])
}

func TestEngine_ResolveWithoutHeldAnswerAsksQuestion(t *testing.T) {
	b := dsl.New("care")
	b.Add("human").Handover("Te paso con alguien", "datos").Go("name")
	b.Add("name").Question("¿Tu nombre?", "nombre")
	h := newHarness(t, "care", []*domain.Flow{b.MustBuild()})
	ctx := context.Background()

	h.send(t, "hola")
	sess := h.session(t)
	require.True(t, sess.Paused)
	require.Nil(t, sess.HeldInput)

	before := len(h.outbox.Texts(phone))
	require.NoError(t, h.engine.ResolveHandover(ctx, phone))
	assert.Equal(t, []string{"¿Tu nombre?"}, h.outbox.Texts(phone)[before:])
}

func TestEngine_OversizedMessageIsRejected(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow()}, comanda.WithMaxInputChars(10))

	err := h.engine.HandleInbound(context.Background(), domain.InboundMessage{
		ID: "wamid.big", From: phone, Text: "2 coca cola y 3 panes", Timestamp: start,
	})
	assert.ErrorIs(t, err, intake.ErrInputTooLarge)
	assert.Empty(t, h.outbox.Texts(phone))

	assert.NotEmpty(t, h.send(t, "hola"))
}

func TestEngine_OperatorPause(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow()})
	ctx := context.Background()

	require.NoError(t, h.engine.Pause(ctx, phone))
	assert.Empty(t, h.send(t, "hola"))

	require.NoError(t, h.engine.ResolveHandover(ctx, phone))
	texts := h.outbox.Texts(phone)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "¿Qué necesitás?")
}

func TestEngine_TimerContinuesAfterDelay(t *testing.T) {
	b := dsl.New("wait")
	b.Add("before").Message("Un momento...").Go("timer")
	b.Add("timer").Timer(1000, true).Go("after")
	b.Add("after").Message("¡Listo!")
	h := newHarness(t, "wait", []*domain.Flow{b.MustBuild()})

	texts := h.send(t, "hola")
	assert.Equal(t, []string{"Un momento..."}, texts)
	assert.Equal(t, []string{phone}, h.outbox.Typing())

	assert.Empty(t, h.send(t, "¿y?"), "inbound during a pending timer does not advance the flow")

	h.clock.Advance(999 * time.Millisecond)
	assert.Len(t, h.outbox.Texts(phone), 1)

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"Un momento...", "¡Listo!"}, h.outbox.Texts(phone))

	sess := h.session(t)
	assert.Nil(t, sess.PendingTimer)
	assert.Equal(t, "", sess.NodeID)
}

func TestEngine_RecoverTimers(t *testing.T) {
	b := dsl.New("wait")
	b.Add("timer").Timer(5000, false).Go("after")
	b.Add("after").Message("¡Listo!")
	flow := b.MustBuild()
	h := newHarness(t, "wait", []*domain.Flow{flow})
	h.send(t, "hola")

	// A second engine over the same store stands in for a restarted process.
	restarted, err := comanda.New(
		comanda.WithSessionStore(h.store),
		comanda.WithFlows(memory.NewFlowRepository(flow)),
		comanda.WithSender(h.outbox),
		comanda.WithClock(h.clock),
	)
	require.NoError(t, err)
	h.engine.Close()

	n, err := restarted.RecoverTimers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, []string{"¡Listo!"}, h.outbox.Texts(phone))
}

func TestEngine_UnsetConditionTakesFalseBranch(t *testing.T) {
	b := dsl.New("cond")
	b.Add("check").Condition("vip", "si").When("yes", "no")
	b.Add("yes").Message("Hola VIP")
	b.Add("no").Message("Hola")
	h := newHarness(t, "cond", []*domain.Flow{b.MustBuild()})

	assert.Equal(t, []string{"Hola"}, h.send(t, "buenas"))
}

func TestEngine_EscapeCommandResets(t *testing.T) {
	h := newHarness(t, "menu", []*domain.Flow{menuFlow(), shopFlow()})

	h.send(t, "pedido")
	assert.Equal(t, "shop", h.session(t).FlowID)

	texts := h.send(t, "Menú")
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "¿Qué necesitás?")

	sess := h.session(t)
	assert.Equal(t, "menu", sess.FlowID)
	assert.Equal(t, "menu", sess.NodeID)
}

func TestEngine_LoopGuardKeepsState(t *testing.T) {
	b := dsl.New("loop")
	b.Add("a").Message("a").Go("b")
	b.Add("b").Message("b").Go("a")
	h := newHarness(t, "loop", []*domain.Flow{b.MustBuild()})

	texts := h.send(t, "hola")
	assert.Equal(t, []string{h.engine.Texts().LoopGuard}, texts)

	sess := h.session(t)
	assert.Equal(t, "", sess.NodeID)
	assert.True(t, sess.Seen("wamid.1"))
}

func TestEngine_SendFailureIsReportedNotFatal(t *testing.T) {
	var mu sync.Mutex
	var failures []string
	hooks := domain.LifecycleHooks{
		OnSendError: func(ctx context.Context, to string, err error) {
			mu.Lock()
			failures = append(failures, to)
			mu.Unlock()
		},
	}
	h := newHarness(t, "menu", []*domain.Flow{menuFlow()}, comanda.WithHooks(hooks))
	h.outbox.FailSend = fmt.Errorf("gateway down")

	h.send(t, "hola")
	assert.Equal(t, []string{phone}, failures)
	assert.Equal(t, "menu", h.session(t).NodeID, "state advances even when delivery fails")
}

func TestEngine_ConcurrentConversations(t *testing.T) {
	b := dsl.New("count")
	b.Add("ask").Question("¿Nombre?", "name").Go("bye")
	b.Add("bye").Message("Chau {{name}}")

	store := memory.NewStore()
	outbox := memory.NewOutbox()
	pool, err := dispatch.NewOutbound(4, nil)
	require.NoError(t, err)
	eng, err := comanda.New(
		comanda.WithSessionStore(store),
		comanda.WithFlows(memory.NewFlowRepository(b.MustBuild())),
		comanda.WithSender(outbox),
		comanda.WithDefaultFlow("count"),
		comanda.WithOutbound(pool),
	)
	require.NoError(t, err)

	d := dispatch.New(4)
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("54911%05d", i)
		for j, text := range []string{"hola", fmt.Sprintf("cliente %d", i)} {
			msg := domain.InboundMessage{ID: fmt.Sprintf("%s-%d", key, j), From: key, Text: text,
				Timestamp: start.Add(time.Duration(j) * time.Second)}
			require.NoError(t, d.Dispatch(context.Background(), key, func(ctx context.Context) {
				assert.NoError(t, eng.HandleInbound(ctx, msg))
			}))
		}
	}
	require.NoError(t, d.Close(context.Background()))
	pool.Release()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("54911%05d", i)
		assert.Equal(t, []string{"¿Nombre?", fmt.Sprintf("Chau cliente %d", i)}, outbox.Texts(key))
	}
}
