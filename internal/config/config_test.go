package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, 30*time.Second, cfg.Flows.CacheTTL)
	assert.Equal(t, 100, cfg.Engine.MaxTransitions)
	assert.Equal(t, []string{"menu", "salir", "cancelar"}, cfg.Engine.EscapeCommands)
	assert.Equal(t, 4096, cfg.Engine.MaxInputChars)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "comanda.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
flows:
  dir: /srv/flows
  default: bienvenida
store:
  kind: redis
  redis:
    addr: redis:6379
    ttl: 24h
gateway:
  url: https://graph.test/v21.0/123
  token: abc
  verify_token: verify-me
`), 0644))

	t.Setenv("COMANDA_GATEWAY_TOKEN", "from-env")
	t.Setenv("COMANDA_DISPATCH_SHARDS", "4")

	v := New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":9999"}))
	require.NoError(t, BindFlags(v, flags))

	cfg, err := Load(v, file)
	require.NoError(t, err)

	assert.Equal(t, "/srv/flows", cfg.Flows.Dir)
	assert.Equal(t, "bienvenida", cfg.Flows.Default)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "https://graph.test/v21.0/123", cfg.Gateway.BaseURL)
	assert.Equal(t, "from-env", cfg.Gateway.Token)
	assert.Equal(t, "verify-me", cfg.Gateway.VerifyToken)
	assert.Equal(t, 4, cfg.Dispatch.Shards)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestValidate(t *testing.T) {
	v := New()
	v.Set("store.kind", "postgres")
	_, err := Load(v, "")
	assert.ErrorContains(t, err, "unknown store kind")

	v = New()
	v.Set("store.encryption_key", "abcd")
	_, err = Load(v, "")
	assert.ErrorContains(t, err, "32 bytes")

	v = New()
	v.Set("store.encryption_key", strings.Repeat("ab", 32))
	cfg, err := Load(v, "")
	require.NoError(t, err)
	key, err := cfg.Store.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
