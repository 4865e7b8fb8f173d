package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/comanda/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the HTTP API of app.
func Handler(app *App) http.Handler {
	return httpadapter.NewHandler(httpadapter.Config{
		Engine:        app.Engine,
		Dispatcher:    app.Dispatcher,
		Sessions:      app.Sessions,
		Flows:         app.Flows,
		Catalog:       app.Catalog,
		Orders:        app.Orders,
		OnFlowChanged: app.Engine.Flows().Invalidate,
		VerifyToken:   app.Config.Gateway.VerifyToken,
		AppSecret:     app.Config.Gateway.AppSecret,
		Metrics:       promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
		Streams:       app.Streams,
		DocumentsDir:  app.Config.Documents.Dir,
		Logger:        app.Logger,
	})
}

// Serve recovers pending timers and runs the HTTP API until ctx is done,
// then shuts down gracefully.
func Serve(ctx context.Context, app *App, addr string) error {
	if n, err := app.Engine.RecoverTimers(ctx); err != nil {
		app.Logger.Error("Timer recovery failed", "err", err)
	} else if n > 0 {
		app.Logger.Info("Timers recovered", "count", n)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting comanda server", "addr", addr, "store", app.Config.Store.Kind)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("Start shutdown")
	// Give outstanding requests a deadline for completion.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Warn("Graceful shutdown did not complete", "err", err)
		_ = srv.Close()
	}
	return app.Close(shutdownCtx)
}
