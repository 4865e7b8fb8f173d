// Package config loads the comanda settings from a YAML file, COMANDA_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/comanda/pkg/adapters/whatsapp"
	"github.com/aretw0/comanda/pkg/intake"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: flows.dir is COMANDA_FLOWS_DIR.
const EnvPrefix = "COMANDA"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Flows     FlowsConfig     `mapstructure:"flows"`
	Store     StoreConfig     `mapstructure:"store"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type FlowsConfig struct {
	Dir      string        `mapstructure:"dir"`
	Default  string        `mapstructure:"default"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type StoreConfig struct {
	Kind   string       `mapstructure:"kind"`
	Redis  RedisConfig  `mapstructure:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	File   FileConfig   `mapstructure:"file"`
	// EncryptionKey is a hex encoded 32 byte AES key. Empty disables encryption at rest.
	EncryptionKey string `mapstructure:"encryption_key"`
	// PIIKeys are variable names masked before sessions are persisted.
	PIIKeys []string `mapstructure:"pii_keys"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

// CatalogConfig points at a YAML/JSON product list loaded at startup.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

type GatewayConfig struct {
	whatsapp.Config `mapstructure:",squash"`
	VerifyToken     string `mapstructure:"verify_token"`
	AppSecret       string `mapstructure:"app_secret"`
}

type DocumentsConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

type EngineConfig struct {
	MaxTransitions int      `mapstructure:"max_transitions"`
	EscapeCommands []string `mapstructure:"escape_commands"`
	MaxInputChars  int      `mapstructure:"max_input_chars"`
}

type DispatchConfig struct {
	Shards          int `mapstructure:"shards"`
	QueueSize       int `mapstructure:"queue_size"`
	OutboundWorkers int `mapstructure:"outbound_workers"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key so environment overrides are picked up on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("flows.dir", "./flows")
	v.SetDefault("flows.default", "")
	v.SetDefault("flows.cache_ttl", "30s")
	v.SetDefault("store.kind", StoreMemory)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "comanda:")
	v.SetDefault("store.redis.ttl", "0s")
	v.SetDefault("store.sqlite.path", "comanda.db")
	v.SetDefault("store.file.dir", ".comanda/sessions")
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.pii_keys", []string{})
	v.SetDefault("catalog.file", "")
	v.SetDefault("gateway.url", "")
	v.SetDefault("gateway.token", "")
	v.SetDefault("gateway.typing_path", "")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.max_retries", 2)
	v.SetDefault("gateway.retry_wait_ms", 200)
	v.SetDefault("gateway.debug", false)
	v.SetDefault("gateway.verify_token", "")
	v.SetDefault("gateway.app_secret", "")
	v.SetDefault("documents.dir", ".comanda/documents")
	v.SetDefault("documents.base_url", "http://localhost:8080/documents")
	v.SetDefault("engine.max_transitions", 100)
	v.SetDefault("engine.escape_commands", []string{"menu", "salir", "cancelar"})
	v.SetDefault("engine.max_input_chars", intake.MaxTextBody)
	v.SetDefault("dispatch.shards", 8)
	v.SetDefault("dispatch.queue_size", 64)
	v.SetDefault("dispatch.outbound_workers", 16)
	v.SetDefault("http.addr", ":8080")
}

// BindFlags maps the common command-line flags onto their keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"flows":     "flows.dir",
		"store":     "store.kind",
		"log-level": "log.level",
		"addr":      "http.addr",
	}
	for flag, key := range bindings {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment overrides wired.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (when not empty) into v and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store kind %q (want memory, file, redis or sqlite)", c.Store.Kind)
	}
	if _, err := c.Store.Key(); err != nil {
		return err
	}
	if c.Engine.MaxTransitions < 0 {
		return fmt.Errorf("engine.max_transitions must not be negative")
	}
	if c.Dispatch.Shards <= 0 {
		return fmt.Errorf("dispatch.shards must be positive")
	}
	return nil
}

// Key decodes the encryption key. It returns nil when encryption is disabled.
func (s StoreConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("store.encryption_key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
