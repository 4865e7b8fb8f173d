package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/comanda/internal/runtime"
	"github.com/aretw0/comanda/pkg/adapters/memory"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/dsl"
	"github.com/aretw0/comanda/pkg/flows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phone = "5491100000000"

var testCatalog = []domain.Product{
	{ID: "p1", Name: "Coca Cola", Price: 1500, Stock: 10},
	{ID: "p2", Name: "Pan Integral", Price: 900, Stock: 5},
	{ID: "p3", Name: "Leche Entera", Price: 1200, Stock: 0},
}

type fixture struct {
	it     *runtime.Interpreter
	orders *memory.Orders
	outbox *memory.Outbox
	now    time.Time
}

func newFixture(t *testing.T, fs ...*domain.Flow) *fixture {
	t.Helper()
	f := &fixture{
		orders: memory.NewOrders(),
		outbox: memory.NewOutbox(),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.it = runtime.New(flows.NewCache(memory.NewFlowRepository(fs...)),
		runtime.WithCatalog(memory.NewCatalog(testCatalog...)),
		runtime.WithOrders(f.orders),
		runtime.WithClaims(f.orders),
		runtime.WithRenderer(f.outbox),
		runtime.WithClock(func() time.Time { return f.now }),
		runtime.WithMaxTransitions(20),
	)
	return f
}

func (f *fixture) start(flowID string) *domain.Session {
	return domain.NewSession(phone, flowID, f.now)
}

func (f *fixture) step(t *testing.T, sess *domain.Session, in *runtime.Input) (*domain.Session, []string, *runtime.StepResult) {
	t.Helper()
	res, err := f.it.Step(context.Background(), sess, in)
	require.NoError(t, err)
	var texts []string
	for _, m := range res.Outbound {
		texts = append(texts, m.Summary())
	}
	return res.Session, texts, res
}

func say(text string) *runtime.Input {
	return &runtime.Input{Text: text}
}

func TestStep_QuestionAndInterpolation(t *testing.T) {
	b := dsl.New("hola")
	b.Add("hi").Message("¡Hola!").Go("ask")
	b.Add("ask").Question("¿Cómo te llamás?", "name").Go("bye")
	b.Add("bye").Message("Gracias {{name}}, te escribimos al {sys.phone}.")
	f := newFixture(t, b.MustBuild())

	sess, texts, res := f.step(t, f.start("hola"), nil)
	assert.Equal(t, []string{"¡Hola!", "¿Cómo te llamás?"}, texts)
	assert.True(t, res.Halted)
	assert.Equal(t, "ask", sess.NodeID)
	assert.True(t, sess.Awaiting)

	sess, texts, res = f.step(t, sess, say("  Ana "))
	assert.Equal(t, []string{"Gracias Ana, te escribimos al " + phone + "."}, texts)
	assert.False(t, res.Halted)
	assert.Equal(t, "", sess.NodeID, "flow finished")
	assert.Equal(t, "Ana", sess.Variables["name"])
	assert.Len(t, sess.History, 3)
}

func TestStep_DoesNotMutateInput(t *testing.T) {
	b := dsl.New("f")
	b.Add("ask").Question("?", "x")
	f := newFixture(t, b.MustBuild())

	orig := f.start("f")
	_, _, _ = f.step(t, orig, nil)
	assert.Equal(t, "", orig.NodeID)
	assert.Empty(t, orig.History)
}

func pollFlow() *domain.Flow {
	b := dsl.New("menu")
	b.Add("menu").Poll("¿Qué necesitás?", "choice", "Hacer pedido", "Soporte", "Pedido mayorista").
		Option(0, "order").Option(1, "support").Option(2, "wholesale")
	b.Add("order").Message("pedido")
	b.Add("support").Message("soporte")
	b.Add("wholesale").Message("mayorista")
	return b.MustBuild()
}

func TestStep_PollSelectsByIndex(t *testing.T) {
	f := newFixture(t, pollFlow())

	sess, texts, _ := f.step(t, f.start("menu"), nil)
	assert.Equal(t, []string{"¿Qué necesitás?\n1. Hacer pedido\n2. Soporte\n3. Pedido mayorista"}, texts)

	sess, texts, _ = f.step(t, sess, say("2"))
	assert.Equal(t, []string{"soporte"}, texts)
	assert.Equal(t, "Soporte", sess.Variables["choice"])
}

func TestStep_PollRetriesOnUnknownAnswer(t *testing.T) {
	f := newFixture(t, pollFlow())

	sess, _, _ := f.step(t, f.start("menu"), nil)
	sess, texts, res := f.step(t, sess, say("quiero hablar con alguien"))
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "No entendí")
	assert.Contains(t, texts[1], "1. Hacer pedido")
	assert.True(t, res.Halted)
	assert.Equal(t, "menu", sess.NodeID)

	_, texts, _ = f.step(t, sess, say("7"))
	assert.Contains(t, texts[0], "No entendí", "out of range index is not a match")
}

func TestMatchOption(t *testing.T) {
	options := []string{"Pedido", "Pedido mayorista", "Soporte", "3"}
	tests := []struct {
		answer string
		want   int
		ok     bool
	}{
		{"pedido", 0, true},
		{"PEDIDO MAYORISTA", 1, true},
		{"3", 3, true},
		{"2", 1, true},
		{"2.", 1, true},
		{"sopor", 2, true},
		{"edido", 0, true},
		{"mayor", 1, true},
		{"9", 0, false},
		{"", 0, false},
		{"helado", -1, false},
	}
	for _, tt := range tests {
		got, ok := runtime.MatchOption(tt.answer, options)
		assert.Equal(t, tt.ok, ok, tt.answer)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.answer)
		}
	}
}

func conditionFlow(variable, expected, expression string) *domain.Flow {
	b := dsl.New("cond")
	n := b.Add("check")
	if expression != "" {
		n.Expression(expression)
	} else {
		n.Condition(variable, expected)
	}
	n.When("yes", "no")
	b.Add("yes").Message("si")
	b.Add("no").Message("no")
	return b.MustBuild()
}

func TestStep_Condition(t *testing.T) {
	t.Run("Unset Variable Takes False", func(t *testing.T) {
		f := newFixture(t, conditionFlow("vip", "true", ""))
		_, texts, res := f.step(t, f.start("cond"), nil)
		assert.Equal(t, []string{"no"}, texts)
		assert.Empty(t, res.Warnings)
	})

	t.Run("Missing Variable Config Warns", func(t *testing.T) {
		f := newFixture(t, conditionFlow("", "x", ""))
		_, texts, res := f.step(t, f.start("cond"), nil)
		assert.Equal(t, []string{"no"}, texts)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, domain.WarnMissingVariable, res.Warnings[0].Code)
	})

	t.Run("Trimmed Exact Match", func(t *testing.T) {
		f := newFixture(t, conditionFlow("choice", "Hacer pedido", ""))
		sess := f.start("cond")
		sess.Variables["choice"] = " Hacer pedido "
		_, texts, _ := f.step(t, sess, nil)
		assert.Equal(t, []string{"si"}, texts)
	})

	t.Run("Comparison Is Case Sensitive", func(t *testing.T) {
		f := newFixture(t, conditionFlow("v", "si", ""))
		sess := f.start("cond")
		sess.Variables["v"] = "Si"
		_, texts, _ := f.step(t, sess, nil)
		assert.Equal(t, []string{"no"}, texts)
	})

	t.Run("Empty Expected Matches Empty Value Only", func(t *testing.T) {
		for value, want := range map[string]string{"": "si", "yes": "no", "  ": "si"} {
			f := newFixture(t, conditionFlow("v", "", ""))
			sess := f.start("cond")
			sess.Variables["v"] = value
			_, texts, _ := f.step(t, sess, nil)
			assert.Equal(t, []string{want}, texts, "value %q", value)
		}
	})

	t.Run("Ignore Case Opt In", func(t *testing.T) {
		b := dsl.New("cond")
		b.Add("check").Configure(&domain.ConditionConfig{Variable: "v", ExpectedValue: "si", IgnoreCase: true}).When("yes", "no")
		b.Add("yes").Message("si")
		b.Add("no").Message("no")
		f := newFixture(t, b.MustBuild())
		sess := f.start("cond")
		sess.Variables["v"] = "SI "
		_, texts, _ := f.step(t, sess, nil)
		assert.Equal(t, []string{"si"}, texts)
	})

	t.Run("Expression", func(t *testing.T) {
		f := newFixture(t, conditionFlow("", "", `number(qty) >= 3`))
		sess := f.start("cond")
		sess.Variables["qty"] = "4"
		_, texts, _ := f.step(t, sess, nil)
		assert.Equal(t, []string{"si"}, texts)
	})

	t.Run("Broken Expression Warns And Takes False", func(t *testing.T) {
		f := newFixture(t, conditionFlow("", "", `qty >`))
		_, texts, res := f.step(t, f.start("cond"), nil)
		assert.Equal(t, []string{"no"}, texts)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, domain.WarnExpression, res.Warnings[0].Code)
	})
}

func TestStep_MissingHandleFallsBackWithWarning(t *testing.T) {
	b := dsl.New("f")
	b.Add("check").Condition("x", "1").Branch(domain.HandleTrue, "yes").Go("other")
	b.Add("yes").Message("yes")
	b.Add("other").Message("other")
	f := newFixture(t, b.MustBuild())

	_, texts, res := f.step(t, f.start("f"), nil)
	assert.Equal(t, []string{"other"}, texts)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarnMissingEdge, res.Warnings[0].Code)
}

func TestStep_LoopGuard(t *testing.T) {
	b := dsl.New("loop")
	b.Add("a").Message("a").Go("b")
	b.Add("b").Message("b").Go("a")
	f := newFixture(t, b.MustBuild())

	sess := f.start("loop")
	res, err := f.it.Step(context.Background(), sess, nil)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrLoopGuard))
	assert.Equal(t, "", sess.NodeID, "caller keeps the previous state")
}

func TestStep_MissingNodeRestartsAtEntry(t *testing.T) {
	b := dsl.New("f")
	b.Add("ask").Question("¿Nombre?", "name")
	f := newFixture(t, b.MustBuild())

	sess := f.start("f")
	sess.NodeID = "deleted-node"
	sess.Awaiting = true
	sess.Variables["stale"] = true

	sess, texts, res := f.step(t, sess, say("hola"))
	assert.True(t, res.Restarted)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "reinició")
	assert.Equal(t, "¿Nombre?", texts[1])
	assert.Equal(t, "ask", sess.NodeID)
	assert.NotContains(t, sess.Variables, "stale")
	assert.Equal(t, domain.WarnNodeReset, res.Warnings[0].Code)
}

func commerceFlow() *domain.Flow {
	b := dsl.New("shop")
	b.Add("catalog").Catalog("Nuestros productos:", "items", true).Go("summary")
	b.Add("summary").OrderSummary("").Go("confirm")
	b.Add("confirm").CreateOrder("Pedido {{order_id}} confirmado por {{order_total}}")
	return b.MustBuild()
}

func TestStep_CatalogCartOrderRoundTrip(t *testing.T) {
	f := newFixture(t, commerceFlow())

	sess, texts, _ := f.step(t, f.start("shop"), nil)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "• Coca Cola $1500")
	assert.Contains(t, texts[0], "• Leche Entera $1200 (sin stock)")

	sess, texts, _ = f.step(t, sess, say("2 coca cola\n3x pan integral\n1 leche"))
	require.Len(t, texts, 2)
	assert.Equal(t, "Resumen de tu pedido:\n2 x Coca Cola $3000\n3 x Pan Integral $2700\n1 x Leche Entera $1200\nTotal: $6900", texts[0])

	orders := f.orders.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, phone, orders[0].CustomerRef)
	require.Len(t, orders[0].Items, 3)
	assert.Equal(t, 3, orders[0].Items[1].Quantity)

	assert.Equal(t, "Pedido "+orders[0].ID+" confirmado por 6900", texts[1])
	assert.Empty(t, sess.Cart, "cart is cleared after a successful order")
	assert.Equal(t, orders[0].ID, sess.System["order_id"])
	assert.Equal(t, "", sess.NodeID)
}

func TestStep_CatalogRetryWhenNothingMatches(t *testing.T) {
	f := newFixture(t, commerceFlow())
	sess, _, _ := f.step(t, f.start("shop"), nil)

	sess, texts, res := f.step(t, sess, say("un helado"))
	assert.True(t, res.Halted)
	assert.Equal(t, "catalog", sess.NodeID)
	assert.Contains(t, texts[0], "No encontré productos")
	assert.Empty(t, sess.Cart)
}

// flakyCatalog fails the first failures calls to ListAll.
type flakyCatalog struct {
	*memory.Catalog
	failures int
}

func (c *flakyCatalog) ListAll(ctx context.Context) ([]domain.Product, error) {
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("catalog backend down")
	}
	return c.Catalog.ListAll(ctx)
}

func TestStep_CatalogFailureOnFirstVisitRetriesPrompt(t *testing.T) {
	it := runtime.New(flows.NewCache(memory.NewFlowRepository(commerceFlow())),
		runtime.WithCatalog(&flakyCatalog{Catalog: memory.NewCatalog(testCatalog...), failures: 1}),
	)
	ctx := context.Background()

	res, err := it.Step(ctx, domain.NewSession(phone, "shop", time.Now()), nil)
	require.NoError(t, err)
	assert.True(t, res.Halted)
	assert.Equal(t, "catalog", res.Session.NodeID)
	assert.False(t, res.Session.Awaiting, "the catalog was never shown")
	require.Len(t, res.Outbound, 1)
	assert.NotContains(t, res.Outbound[0].Summary(), "Nuestros productos")

	res, err = it.Step(ctx, res.Session, say("hola, me mostrás el catálogo?"))
	require.NoError(t, err)
	require.Len(t, res.Outbound, 1)
	assert.Contains(t, res.Outbound[0].Summary(), "Nuestros productos:")
	assert.True(t, res.Session.Awaiting)
}

func TestStep_HandoverForwardsHeldAnswer(t *testing.T) {
	b := dsl.New("f")
	b.Add("human").Handover("Te paso con alguien", "").Go("name")
	b.Add("name").Question("¿Tu nombre?", "nombre").Go("thanks")
	b.Add("thanks").Message("Gracias {{nombre}}")
	f := newFixture(t, b.MustBuild())

	sess, _, _ := f.step(t, f.start("f"), nil)
	require.True(t, sess.Paused)

	sess.Paused = false
	sess, texts, _ := f.step(t, sess, say("Ana"))
	assert.Equal(t, []string{"Gracias Ana"}, texts)
	assert.Equal(t, "Ana", sess.Variables["nombre"])
}

func TestStep_CreateOrderFailureHaltsAndRetries(t *testing.T) {
	b := dsl.New("f")
	b.Add("order").Configure(&domain.CreateOrderConfig{ErrorText: "No pudimos registrar tu pedido."}).Go("done")
	b.Add("done").Message("hecho")
	f := newFixture(t, b.MustBuild())
	f.orders.Fail = errors.New("backend down")

	sess := f.start("f")
	sess.Cart = []domain.LineItem{{ProductID: "p1", Name: "Coca Cola", Quantity: 1, UnitPrice: 1500}}

	sess, texts, res := f.step(t, sess, nil)
	assert.Equal(t, []string{"No pudimos registrar tu pedido."}, texts)
	assert.True(t, res.Halted)
	assert.Equal(t, "order", sess.NodeID)
	assert.Len(t, sess.Cart, 1, "cart is kept so the order can be retried")

	f.orders.Fail = nil
	sess, texts, _ = f.step(t, sess, say("reintentar"))
	assert.Equal(t, "hecho", texts[len(texts)-1])
	assert.Empty(t, sess.Cart)
	assert.Len(t, f.orders.Orders(), 1)
}

func TestStep_CreateOrderEmptyCart(t *testing.T) {
	b := dsl.New("f")
	b.Add("order").CreateOrder("").Branch(domain.HandleEmpty, "shop").Go("done")
	b.Add("shop").Message("elegí productos")
	b.Add("done").Message("hecho")
	f := newFixture(t, b.MustBuild())

	_, texts, _ := f.step(t, f.start("f"), nil)
	assert.Equal(t, []string{"Tu carrito está vacío.", "elegí productos"}, texts)
	assert.Empty(t, f.orders.Orders())
}

func TestStep_AddToCart(t *testing.T) {
	b := dsl.New("f")
	b.Add("add").AddToCart("product", "qty", "detail").Branch(domain.HandleInvalid, "bad").Go("ok")
	b.Add("ok").Message("{{cart_total}}")
	b.Add("bad").Message("bad")
	f := newFixture(t, b.MustBuild())

	t.Run("By Name", func(t *testing.T) {
		sess := f.start("f")
		sess.Variables["product"] = "pan integral"
		sess.Variables["qty"] = "2"
		sess.Variables["detail"] = "cortado"
		sess, texts, _ := f.step(t, sess, nil)
		assert.Equal(t, []string{"1800"}, texts)
		require.Len(t, sess.Cart, 1)
		assert.Equal(t, "cortado", sess.Cart[0].Detail)
	})

	t.Run("From Stock Check Result", func(t *testing.T) {
		sess := f.start("f")
		sess.Variables["product"] = map[string]any{"product_id": "p1", "name": "Coca Cola", "price": 1500.0}
		sess.Variables["qty"] = 3.0
		sess, _, _ = f.step(t, sess, nil)
		require.Len(t, sess.Cart, 1)
		assert.Equal(t, 3, sess.Cart[0].Quantity)
	})

	t.Run("Invalid Quantity", func(t *testing.T) {
		sess := f.start("f")
		sess.Variables["product"] = "coca cola"
		sess.Variables["qty"] = "0"
		sess, texts, res := f.step(t, sess, nil)
		assert.Equal(t, "bad", texts[len(texts)-1])
		assert.Empty(t, sess.Cart)
		assert.Equal(t, domain.WarnInvalidCartItem, res.Warnings[0].Code)
	})

	t.Run("Unknown Product", func(t *testing.T) {
		sess := f.start("f")
		sess.Variables["product"] = "helado"
		_, texts, _ := f.step(t, sess, nil)
		assert.Equal(t, "bad", texts[len(texts)-1])
	})
}

func TestStep_StockCheck(t *testing.T) {
	b := dsl.New("f")
	b.Add("ask").StockCheck("¿Qué producto?", "stock").Go("check")
	b.Add("check").Expression("stock.available").When("yes", "no")
	b.Add("yes").Message("Hay {{stock.stock}} de {{stock.name}} a {{stock.price}}")
	b.Add("no").Message("No hay {{stock.name}}")
	f := newFixture(t, b.MustBuild())

	sess, _, _ := f.step(t, f.start("f"), nil)
	_, texts, _ := f.step(t, sess, say("coca"))
	assert.Equal(t, []string{"Hay 10 de Coca Cola a 1500"}, texts)

	_, texts, _ = f.step(t, sess, say("leche"))
	assert.Equal(t, []string{"No hay Leche Entera"}, texts)

	_, texts, _ = f.step(t, sess, say("helado"))
	assert.Equal(t, []string{"No hay helado"}, texts)
}

func TestStep_Timer(t *testing.T) {
	b := dsl.New("f")
	b.Add("before").Message("Un momento...").Go("wait")
	b.Add("wait").Timer(1000, true).Go("after")
	b.Add("after").Message("¡Listo!")
	f := newFixture(t, b.MustBuild())

	sess, texts, res := f.step(t, f.start("f"), nil)
	assert.Equal(t, []string{"Un momento..."}, texts)
	assert.True(t, res.Halted)
	require.NotNil(t, sess.PendingTimer)
	assert.Equal(t, f.now.Add(time.Second), sess.PendingTimer.DueAt)
	assert.True(t, sess.PendingTimer.ShowTyping)

	_, texts, _ = f.step(t, sess, &runtime.Input{TimerToken: "stale"})
	assert.Empty(t, texts, "stale timer tokens do not advance")

	sess, texts, _ = f.step(t, sess, &runtime.Input{TimerToken: sess.PendingTimer.Token})
	assert.Equal(t, []string{"¡Listo!"}, texts)
	assert.Nil(t, sess.PendingTimer)
}

func TestStep_ZeroTimerContinues(t *testing.T) {
	b := dsl.New("f")
	b.Add("wait").Timer(0, false).Go("after")
	b.Add("after").Message("ya")
	f := newFixture(t, b.MustBuild())

	sess, texts, _ := f.step(t, f.start("f"), nil)
	assert.Equal(t, []string{"ya"}, texts)
	assert.Nil(t, sess.PendingTimer)
}

func TestStep_HandoverPausesAndNotifies(t *testing.T) {
	b := dsl.New("f")
	b.Add("human").Handover("", "cliente pide humano").Go("back")
	b.Add("back").Message("Volvimos")
	f := newFixture(t, b.MustBuild())

	sess, texts, res := f.step(t, f.start("f"), nil)
	assert.Equal(t, []string{"Te comunicamos con una persona de nuestro equipo."}, texts)
	assert.True(t, sess.Paused)
	assert.Equal(t, []runtime.Attention{{Key: phone, Reason: "cliente pide humano"}}, res.Attention)

	sess.Paused = false
	_, texts, _ = f.step(t, sess, nil)
	assert.Equal(t, []string{"Volvimos"}, texts)
}

func TestStep_ThreadControlPauseStopsAfterTransition(t *testing.T) {
	b := dsl.New("f")
	b.Add("pause").Pause("Un operador va a seguir la conversación").Go("next")
	b.Add("next").Question("¿Seguimos?", "go")
	f := newFixture(t, b.MustBuild())

	sess, texts, res := f.step(t, f.start("f"), nil)
	assert.Equal(t, []string{"Un operador va a seguir la conversación"}, texts)
	assert.True(t, sess.Paused)
	assert.False(t, res.Halted)
	assert.Equal(t, "next", sess.NodeID)
	assert.False(t, sess.Awaiting)

	sess.Paused = false
	_, texts, _ = f.step(t, sess, nil)
	assert.Equal(t, []string{"¿Seguimos?"}, texts)
}

func TestStep_JumpToOtherFlow(t *testing.T) {
	main := dsl.New("main")
	main.Add("go").Message("Te paso a soporte").Go("jump")
	main.Add("jump").Jump("support")
	support := dsl.New("support")
	support.Add("ask").Question("Contanos tu problema", "problem")
	f := newFixture(t, main.MustBuild(), support.MustBuild())

	sess, texts, _ := f.step(t, f.start("main"), nil)
	assert.Equal(t, []string{"Te paso a soporte", "Contanos tu problema"}, texts)
	assert.Equal(t, "support", sess.FlowID)
	assert.Equal(t, "ask", sess.NodeID)
}

func TestStep_JumpToUnknownFlowWarns(t *testing.T) {
	b := dsl.New("main")
	b.Add("jump").Jump("ghost")
	f := newFixture(t, b.MustBuild())

	sess, _, res := f.step(t, f.start("main"), nil)
	assert.Equal(t, "", sess.NodeID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarnUnknownJumpTarget, res.Warnings[0].Code)
}

func TestStep_MediaRequest(t *testing.T) {
	b := dsl.New("f")
	b.Add("ask").MediaRequest("Mandanos la foto del ticket", "ticket").Go("ok")
	b.Add("ok").Message("Recibido")
	f := newFixture(t, b.MustBuild())

	sess, _, _ := f.step(t, f.start("f"), nil)
	sess, texts, _ := f.step(t, sess, say("no tengo"))
	assert.Contains(t, texts[0], "archivo")
	assert.Equal(t, "ask", sess.NodeID)

	sess, texts, _ = f.step(t, sess, &runtime.Input{MediaURL: "https://cdn/x.jpg"})
	assert.Equal(t, []string{"Recibido"}, texts)
	assert.Equal(t, "https://cdn/x.jpg", sess.Variables["ticket"])
}

func TestStep_ClaimAndDocument(t *testing.T) {
	b := dsl.New("f")
	b.Add("ask").Question("Contanos el problema", "problem").Go("claim")
	b.Add("claim").Claim("problem", "delivery", "high", "").Go("doc")
	b.Add("doc").Document("comprobante", "Tu comprobante {{claim_id}}")
	f := newFixture(t, b.MustBuild())

	sess, _, _ := f.step(t, f.start("f"), nil)
	sess, texts, _ := f.step(t, sess, say("Llegó frío"))

	claims := f.orders.Claims()
	require.Len(t, claims, 1)
	assert.Equal(t, domain.Claim{Type: "delivery", Priority: "high", Description: "Llegó frío", CustomerRef: phone}, claims[0])
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Registramos tu reclamo")
	assert.Equal(t, "[media] Tu comprobante "+sess.Variables["claim_id"].(string), texts[1])
}

func TestStep_UnconfiguredCollaboratorFails(t *testing.T) {
	b := dsl.New("f")
	b.Add("claim").Claim("", "", "", "")
	it := runtime.New(flows.NewCache(memory.NewFlowRepository(b.MustBuild())))

	res, err := it.Step(context.Background(), domain.NewSession(phone, "f", time.Now()), nil)
	require.NoError(t, err)
	assert.True(t, res.Halted)
	assert.Equal(t, "Perdón, tuvimos un problema. Probá de nuevo en unos minutos.", res.Outbound[0].Text)
}

func TestStep_LifecycleHooks(t *testing.T) {
	b := dsl.New("f")
	b.Add("a").Message("a").Go("b")
	b.Add("b").Question("b?", "b")

	var entered, left []string
	var steps int
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeID) },
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) { left = append(left, e.NodeID+":"+e.Outcome) },
		OnStep:      func(ctx context.Context, e *domain.StepEvent) { steps++ },
	}
	it := runtime.New(flows.NewCache(memory.NewFlowRepository(b.MustBuild())), runtime.WithLifecycleHooks(hooks))

	_, err := it.Step(context.Background(), domain.NewSession(phone, "f", time.Now()), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entered)
	assert.Equal(t, []string{"a:continue", "b:halt"}, left)
	assert.Equal(t, 1, steps)
}
