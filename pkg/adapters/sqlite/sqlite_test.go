package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"
	"testing"

	"github.com/aretw0/comanda/pkg/adapters/sqlite"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, sqlite.NewSessionStore(newTestDB(t)))
}

func TestFlowStore_Contract(t *testing.T) {
	ports.RunFlowRepositoryContract(t, sqlite.NewFlowStore(newTestDB(t)))
}

func TestSessionStore_DurableAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "comanda.db")

	db1, err := sqlite.Open(ctx, dsn)
	require.NoError(t, err)
	sess := domain.NewSession("549", "shop", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	sess.NodeID = "catalog"
	require.NoError(t, sqlite.NewSessionStore(db1).Save(ctx, "549", sess))
	require.NoError(t, db1.Close())

	db2, err := sqlite.Open(ctx, dsn)
	require.NoError(t, err)
	defer db2.Close()
	loaded, err := sqlite.NewSessionStore(db2).Load(ctx, "549")
	require.NoError(t, err)
	assert.Equal(t, "catalog", loaded.NodeID)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	cat := sqlite.NewCatalog(newTestDB(t))
	require.NoError(t, cat.Upsert(ctx,
		domain.Product{ID: "p1", Name: "Coca Cola", Price: 1500, Stock: 10, Aliases: []string{"coca"}},
		domain.Product{ID: "p2", Name: "Pan Integral", Price: 900, Stock: 5},
	))
	require.NoError(t, cat.Upsert(ctx, domain.Product{ID: "p1", Name: "Coca Cola", Price: 1600, Stock: 10, Aliases: []string{"coca"}}))

	all, err := cat.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID, "upsert keeps position")
	assert.Equal(t, 1600.0, all[0].Price)
	assert.Equal(t, []string{"coca"}, all[0].Aliases)

	p, err := cat.Lookup(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Pan Integral", p.Name)

	p, err = cat.Lookup(ctx, "panes integrales")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p2", p.ID)

	p, err = cat.Lookup(ctx, "helado")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestBackOffice_CreateOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cat := sqlite.NewCatalog(db)
	require.NoError(t, cat.Upsert(ctx, domain.Product{ID: "p1", Name: "Coca Cola", Price: 1500, Stock: 3}))
	office := sqlite.NewBackOffice(db)

	id, err := office.CreateOrder(ctx, "549", []domain.LineItem{
		{ProductID: "p1", Name: "Coca Cola", Quantity: 5, UnitPrice: 1500},
		{Name: "Envío", Quantity: 1, UnitPrice: 500, Detail: "zona sur"},
	})
	require.NoError(t, err)

	order, err := office.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "549", order.CustomerRef)
	assert.Equal(t, 8000.0, order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "zona sur", order.Items[1].Detail)

	p, err := cat.Lookup(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock, "stock never goes negative")

	_, err = office.CreateOrder(ctx, "549", nil)
	assert.Error(t, err)
}

func TestBackOffice_CreateClaim(t *testing.T) {
	ctx := context.Background()
	office := sqlite.NewBackOffice(newTestDB(t))

	id, err := office.CreateClaim(ctx, domain.Claim{Type: "delivery", Priority: "high", Description: "llegó frío", CustomerRef: "549"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	claims, err := office.Claims(ctx, "549")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "llegó frío", claims[0].Description)
}
