package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/aretw0/comanda/pkg/adapters/memory"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/persistence/middleware"
	"github.com/aretw0/comanda/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig) middleware.Middleware {
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(memory.NewStore())
	ports.RunSessionStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	sess := domain.NewSession("5491155550000", "shop", time.Now())
	sess.Variables["address"] = "Av. Siempre Viva 742"
	sess.Cart = []domain.LineItem{{Name: "Pan", Quantity: 2, UnitPrice: 900}}
	require.NoError(t, secure.Save(ctx, sess.Key, sess))

	stored, err := underlying.Load(ctx, sess.Key)
	require.NoError(t, err)
	assert.NotContains(t, stored.Variables, "address")
	assert.Contains(t, stored.Variables, "__encrypted__")
	assert.Empty(t, stored.Cart)
	assert.Empty(t, stored.FlowID)

	loaded, err := secure.Load(ctx, sess.Key)
	require.NoError(t, err)
	assert.Equal(t, "Av. Siempre Viva 742", loaded.Variables["address"])
	assert.Equal(t, "shop", loaded.FlowID)
	assert.Len(t, loaded.Cart, 1)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	sess := domain.NewSession("k", "menu", time.Now())
	sess.Variables["data"] = "old"
	require.NoError(t, oldStore.Save(ctx, "k", sess))

	newStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})(underlying)
	loaded, err := newStore.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "old", loaded.Variables["data"])

	loaded.Variables["data"] = "new"
	require.NoError(t, newStore.Save(ctx, "k", loaded))

	_, err = oldStore.Load(ctx, "k")
	assert.Error(t, err, "old key alone cannot read data sealed with the new key")
}

func TestEncryptionMiddleware_RejectsPlainSessions(t *testing.T) {
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(context.Background(), "k", domain.NewSession("k", "menu", time.Now())))

	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(context.Background(), "k")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}
