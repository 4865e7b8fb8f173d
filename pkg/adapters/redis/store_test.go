package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/comanda/pkg/adapters/redis"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisFlowStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunFlowRepositoryContract(t, redis.NewFlowStore(client, "test:"))
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute), redis.WithPrefix("t:"))

	require.NoError(t, store.Save(ctx, "5491", domain.NewSession("5491", "pedidos", time.Now())))
	assert.True(t, mr.Exists("t:session:5491"))
	assert.Equal(t, time.Minute, mr.TTL("t:session:5491"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, "5491")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
