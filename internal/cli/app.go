package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/comanda"
	"github.com/aretw0/comanda/internal/config"
	"github.com/aretw0/comanda/pkg/adapters/file"
	httpadapter "github.com/aretw0/comanda/pkg/adapters/http"
	"github.com/aretw0/comanda/pkg/adapters/memory"
	"github.com/aretw0/comanda/pkg/adapters/pdf"
	"github.com/aretw0/comanda/pkg/adapters/redis"
	"github.com/aretw0/comanda/pkg/adapters/sqlite"
	"github.com/aretw0/comanda/pkg/adapters/whatsapp"
	"github.com/aretw0/comanda/pkg/dispatch"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/observability"
	"github.com/aretw0/comanda/pkg/persistence/middleware"
	"github.com/aretw0/comanda/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is a fully wired comanda process: engine, stores, transport and workers.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Engine   *comanda.Engine
	Sessions ports.SessionStore
	Flows    ports.FlowStore
	Catalog  ports.Catalog
	Orders   ports.OrderCreator
	Claims   ports.ClaimCreator
	Sender   ports.Sender

	Dispatcher *dispatch.Dispatcher
	Outbound   *dispatch.Outbound
	Streams    *httpadapter.StreamManager
	Registry   *prometheus.Registry

	redis   *redis.Store
	closers []func() error
}

// BuildOptions overrides pieces of the wiring, mostly for the simulator and tests.
type BuildOptions struct {
	// Sender replaces the gateway sender.
	Sender ports.Sender
	// Hooks are combined with the metrics and debug hooks.
	Hooks domain.LifecycleHooks
	// EngineOptions are appended after the configured ones.
	EngineOptions []comanda.Option
}

// Build wires an App from cfg. Call Close to release it.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, bo BuildOptions) (_ *App, err error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Streams:  httpadapter.NewStreamManager(logger),
	}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	if err := app.openStores(ctx); err != nil {
		return nil, err
	}
	if err := app.seedFlows(ctx); err != nil {
		return nil, err
	}
	if err := app.seedCatalog(ctx); err != nil {
		return nil, err
	}

	sender := bo.Sender
	if sender == nil {
		if cfg.Gateway.BaseURL != "" {
			sender = whatsapp.NewSender(cfg.Gateway.Config)
		} else {
			logger.Warn("No gateway configured, outbound messages are kept in memory")
			sender = memory.NewOutbox()
		}
	}
	app.Sender = httpadapter.NewStreamingSender(sender, app.Streams)

	renderer, err := pdf.NewRenderer(cfg.Documents.Dir, cfg.Documents.BaseURL)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewMetrics(app.Registry)
	if err != nil {
		return nil, err
	}
	app.Registry.MustRegister(collectors.NewGoCollector())

	app.Outbound, err = dispatch.NewOutbound(cfg.Dispatch.OutboundWorkers, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error { app.Outbound.Release(); return nil })

	opts := []comanda.Option{
		comanda.WithSessionStore(app.Sessions),
		comanda.WithFlows(app.Flows),
		comanda.WithSender(app.Sender),
		comanda.WithCatalog(app.Catalog),
		comanda.WithOrders(app.Orders),
		comanda.WithClaims(app.Claims),
		comanda.WithRenderer(renderer),
		comanda.WithNotifier(app.Streams),
		comanda.WithLogger(logger),
		comanda.WithHooks(observability.Combine(metrics.Hooks(), observability.LogHooks(logger), bo.Hooks)),
		comanda.WithOutbound(app.Outbound),
		comanda.WithFlowCacheTTL(cfg.Flows.CacheTTL),
		comanda.WithMaxInputChars(cfg.Engine.MaxInputChars),
	}
	if cfg.Engine.MaxTransitions > 0 {
		opts = append(opts, comanda.WithMaxTransitions(cfg.Engine.MaxTransitions))
	}
	if cfg.Flows.Default != "" {
		opts = append(opts, comanda.WithDefaultFlow(cfg.Flows.Default))
	}
	if len(cfg.Engine.EscapeCommands) > 0 {
		opts = append(opts, comanda.WithEscapeCommands(cfg.Engine.EscapeCommands...))
	}
	if locker := app.locker(); locker != nil {
		opts = append(opts, comanda.WithLocker(locker))
	}
	opts = append(opts, bo.EngineOptions...)

	app.Engine, err = comanda.New(opts...)
	if err != nil {
		return nil, err
	}

	if warnings, err := app.Engine.Flows().Validate(ctx); err == nil {
		for _, w := range warnings {
			app.Engine.Flows().Warn(ctx, w)
		}
	}

	app.Dispatcher = dispatch.New(cfg.Dispatch.Shards, dispatch.WithQueueSize(cfg.Dispatch.QueueSize), dispatch.WithLogger(logger))
	return app, nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config
	var store ports.SessionStore

	switch cfg.Store.Kind {
	case config.StoreMemory:
		a.Logger.Info("Using in-memory store: sessions, orders and timers are lost on restart")
		store = memory.NewStore()
		a.Flows = memory.NewFlowRepository()
		a.useMemoryBackOffice()

	case config.StoreFile:
		store = file.NewStore(cfg.Store.File.Dir)
		a.Flows = memory.NewFlowRepository()
		a.useMemoryBackOffice()

	case config.StoreRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Store.Redis.Prefix)}
		if cfg.Store.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Store.Redis.TTL))
		}
		rs := redis.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, opts...)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			_ = rs.Close()
			return fmt.Errorf("connect redis %s: %w", cfg.Store.Redis.Addr, err)
		}
		a.closers = append(a.closers, rs.Close)
		a.redis = rs
		store = rs
		a.Flows = redis.NewFlowStore(rs.Client(), cfg.Store.Redis.Prefix)
		a.useMemoryBackOffice()

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.SQLite.Path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		store = sqlite.NewSessionStore(db)
		a.Flows = sqlite.NewFlowStore(db)
		a.Catalog = sqlite.NewCatalog(db)
		bo := sqlite.NewBackOffice(db)
		a.Orders, a.Claims = bo, bo

	default:
		return fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}

	var mws []middleware.Middleware
	if len(cfg.Store.PIIKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Store.PIIKeys)
		if err != nil {
			return err
		}
		mws = append(mws, pii)
	}
	key, err := cfg.Store.Key()
	if err != nil {
		return err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return err
		}
		mws = append(mws, enc)
	}
	a.Sessions = middleware.Chain(store, mws...)
	return nil
}

func (a *App) useMemoryBackOffice() {
	if a.Catalog == nil {
		a.Catalog = memory.NewCatalog()
	}
	orders := memory.NewOrders()
	a.Orders, a.Claims = orders, orders
}

func (a *App) locker() ports.DistributedLocker {
	if a.redis == nil {
		return nil
	}
	return redis.NewLocker(a.redis.Client(), a.Config.Store.Redis.Prefix)
}

// seedFlows loads the flows directory into the flow store. A missing directory
// is fine when the store already holds flows.
func (a *App) seedFlows(ctx context.Context) error {
	dir := a.Config.Flows.Dir
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		a.Logger.Warn("Flows directory not found", "dir", dir)
		return nil
	}
	flows, err := file.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, f := range flows {
		if err := a.Flows.SaveFlow(ctx, f); err != nil {
			return fmt.Errorf("store flow %s: %w", f.ID, err)
		}
	}
	a.Logger.Info("Flows loaded", "dir", dir, "count", len(flows))
	return nil
}

func (a *App) seedCatalog(ctx context.Context) error {
	path := a.Config.Catalog.File
	if path == "" {
		return nil
	}
	products, err := file.ReadProducts(path)
	if err != nil {
		return err
	}
	switch c := a.Catalog.(type) {
	case *sqlite.Catalog:
		if err := c.Upsert(ctx, products...); err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
	default:
		a.Catalog = memory.NewCatalog(products...)
	}
	a.Logger.Info("Catalog loaded", "file", path, "products", len(products))
	return nil
}

// ReloadFlows re-reads the flows directory and drops cached graphs. With an
// in-memory flow store, flows removed from disk are removed too.
func (a *App) ReloadFlows(ctx context.Context) (int, error) {
	defer a.Engine.Flows().Invalidate("")
	if repo, ok := a.Flows.(*memory.FlowRepository); ok {
		return file.Reload(ctx, repo, a.Config.Flows.Dir)
	}
	flows, err := file.ReadDir(a.Config.Flows.Dir)
	if err != nil {
		return 0, err
	}
	for _, f := range flows {
		if err := a.Flows.SaveFlow(ctx, f); err != nil {
			return 0, err
		}
	}
	return len(flows), nil
}

// Close drains the dispatcher and releases every resource, in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dispatcher != nil {
		errs = append(errs, a.Dispatcher.Close(ctx))
	}
	if a.Engine != nil {
		a.Engine.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
