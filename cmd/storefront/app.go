package main

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/metrics"
	"github.com/JonMunkholm/storefront/internal/pipeline"
	"github.com/JonMunkholm/storefront/internal/runs"
	"github.com/JonMunkholm/storefront/internal/web"
)

// app holds everything a subcommand run needs, and tears it down in Close.
type app struct {
	pipeline *pipeline.Pipeline
	ledger   *runs.Ledger
	server   *web.Server
	done     chan struct{}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	deps := pipeline.Deps{
		Metrics: metrics.New(),
		Board:   pipeline.NewBoard(),
	}

	if cfg.Database.URL != "" {
		ledger, err := runs.Open(ctx, cfg.Database)
		if err != nil {
			return nil, core.Fail(core.KindConfig, "database", err)
		}
		a.ledger = ledger
		deps.Ledger = ledger
		deps.Locker = func(ctx context.Context) (runs.Lock, error) {
			return ledger.Lock(ctx)
		}
	}

	p, err := pipeline.New(cfg, deps)
	if err != nil {
		a.Close(ctx)
		return nil, core.Fail(core.KindConfig, "config", err)
	}
	a.pipeline = p

	if cfg.Server.Enabled() {
		a.server = web.NewServer(cfg.Server, deps.Board, deps.Metrics.Registry)
		a.done = make(chan struct{})
		go func() {
			defer close(a.done)
			if err := a.server.Start(); err != nil {
				slog.Error("listener stopped", "error", err)
			}
		}()
	}
	return a, nil
}

// Close stops the listener and closes the ledger.
func (a *app) Close(ctx context.Context) {
	if a.server != nil {
		if err := a.server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("listener shutdown", "error", err)
		}
		<-a.done
	}
	if a.ledger != nil {
		a.ledger.Close()
	}
}
