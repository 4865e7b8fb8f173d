package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(key, "pedidos", time.Now())
		sess.NodeID = "ask-name"
		sess.Awaiting = true
		sess.Variables["name"] = "Ana"
		sess.Variables["count"] = 42
		sess.Cart = []domain.LineItem{{ProductID: "p1", Name: "Leche", Quantity: 2, UnitPrice: 900}}
		sess.Paused = true

		require.NoError(t, store.Save(ctx, key, sess), "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "pedidos", loaded.FlowID)
		assert.Equal(t, "ask-name", loaded.NodeID)
		assert.True(t, loaded.Awaiting)
		assert.True(t, loaded.Paused)
		assert.Equal(t, "Ana", loaded.Variables["name"])
		// JSON-backed stores turn ints into float64; only check presence.
		assert.NotNil(t, loaded.Variables["count"])
		require.Len(t, loaded.Cart, 1)
		assert.Equal(t, 2, loaded.Cart[0].Quantity)
	})

	t.Run("Loaded Copy Is Isolated", func(t *testing.T) {
		sess := domain.NewSession(key, "pedidos", time.Now())
		sess.Variables["name"] = "Ana"
		require.NoError(t, store.Save(ctx, key, sess))

		sess.Variables["name"] = "mutated"
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Ana", loaded.Variables["name"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, domain.NewSession(key, "pedidos", time.Now())))

		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
		assert.NoError(t, store.Delete(ctx, key), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1, "pedidos", time.Now())))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2, "pedidos", time.Now())))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}

// RunFlowRepositoryContract verifies a FlowStore implementation. The store must start empty.
func RunFlowRepositoryContract(t *testing.T, store FlowStore) {
	ctx := context.Background()

	greet := &domain.Flow{
		ID:       "greet",
		Active:   true,
		Triggers: []string{"hola", "buenas"},
		Nodes: []domain.Node{
			{ID: "hi", Kind: domain.KindMessage, Config: &domain.MessageConfig{Text: "Hola!"}},
			{ID: "ask", Kind: domain.KindQuestion, Config: &domain.QuestionConfig{Text: "¿Nombre?", Variable: "name"}},
		},
		Edges: []domain.Edge{{ID: "e1", Source: "hi", Target: "ask"}},
	}
	off := &domain.Flow{
		ID:       "off",
		Active:   false,
		Triggers: []string{"promo"},
		Nodes:    []domain.Node{{ID: "n", Kind: domain.KindMessage, Config: &domain.MessageConfig{Text: "x"}}},
	}

	t.Run("Save and Get", func(t *testing.T) {
		require.NoError(t, store.SaveFlow(ctx, greet))
		require.NoError(t, store.SaveFlow(ctx, off))

		got, err := store.GetFlow(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, greet.Triggers, got.Triggers)
		require.Len(t, got.Nodes, 2)
		assert.Equal(t, "name", got.Nodes[1].Config.(*domain.QuestionConfig).Variable)
		require.Len(t, got.Edges, 1)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetFlow(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	})

	t.Run("Find By Trigger", func(t *testing.T) {
		got, err := store.FindByTrigger(ctx, "Buenas tardes")
		require.NoError(t, err)
		assert.Equal(t, "greet", got.ID)

		_, err = store.FindByTrigger(ctx, "promo")
		assert.ErrorIs(t, err, domain.ErrFlowNotFound, "inactive flows are never triggered")
	})

	t.Run("List", func(t *testing.T) {
		all, err := store.ListFlows(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.DeleteFlow(ctx, "off"))
		require.NoError(t, store.DeleteFlow(ctx, "off"))
		_, err := store.GetFlow(ctx, "off")
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	})
}
