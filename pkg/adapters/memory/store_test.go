package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/comanda/pkg/adapters/memory"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/dsl"
	"github.com/aretw0/comanda/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryFlowRepository_Contract(t *testing.T) {
	ports.RunFlowRepositoryContract(t, memory.NewFlowRepository())
}

func TestFlowRepository_RemoveAndInactive(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("promo").Triggers("promo").Inactive()
	b.Add("a").Message("hi")
	repo := memory.NewFlowRepository(b.MustBuild())

	_, err := repo.FindByTrigger(ctx, "promo")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound, "inactive flows are not triggered")

	require.NoError(t, repo.DeleteFlow(ctx, "promo"))
	_, err = repo.GetFlow(ctx, "promo")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestCatalog_Lookup(t *testing.T) {
	ctx := context.Background()
	cat := memory.NewCatalog(
		domain.Product{ID: "p1", Name: "Coca Cola", Price: 1500, Stock: 3},
		domain.Product{ID: "p2", Name: "Pan Integral", Price: 900},
	)

	p, err := cat.Lookup(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Pan Integral", p.Name)

	p, err = cat.Lookup(ctx, "cocas")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p1", p.ID)

	p, err = cat.Lookup(ctx, "helado")
	require.NoError(t, err)
	assert.Nil(t, p)

	cat.SetStock("p2", 7)
	all, err := cat.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, all[1].Stock)
}
