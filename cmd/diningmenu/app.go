package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/japaniel/diningmenu/pkg/config"
	"github.com/japaniel/diningmenu/pkg/db"
	"github.com/japaniel/diningmenu/pkg/fetch"
	"github.com/japaniel/diningmenu/pkg/logger"
	"github.com/japaniel/diningmenu/pkg/refresh"
	"github.com/japaniel/diningmenu/pkg/resolver"
	"github.com/japaniel/diningmenu/pkg/snapshot"
	"github.com/japaniel/diningmenu/pkg/telemetry"
)

// app holds the wired pipeline for one command invocation.
type app struct {
	cfg      *config.Config
	store    *snapshot.Store
	resolver *resolver.Resolver
	tel      *telemetry.Telemetry
	log      *zap.SugaredLogger
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger.GetLogger("main")}

	tel, err := telemetry.New(ctx, cfg.OTLPEndpoint)
	if err != nil {
		a.log.Warnw("telemetry unavailable, continuing without it", "error", err)
		tel = telemetry.Noop()
	}
	a.tel = tel

	backend, err := a.openBackend()
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.store = snapshot.New(backend)

	fetcher := fetch.New(
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
	a.resolver = resolver.New(cfg, fetcher, a.store, resolver.WithTelemetry(tel))
	return a, nil
}

func (a *app) openBackend() (snapshot.Backend, error) {
	switch a.cfg.Snapshot.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(a.cfg.Snapshot.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
		conn, err := db.Open(a.cfg.Snapshot.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		b := snapshot.NewSQLiteBackend(conn)
		a.closers = append(a.closers, b.Close)
		a.log.Debugw("snapshot backend", "backend", "sqlite", "path", a.cfg.Snapshot.SQLitePath)
		return b, nil
	default:
		a.log.Debugw("snapshot backend", "backend", "file", "dir", a.cfg.Snapshot.Dir)
		return snapshot.NewFileBackend(a.cfg.Snapshot.Dir), nil
	}
}

func (a *app) runner() *refresh.Runner {
	return refresh.NewRunner(a.resolver, a.cfg.Schedule.Workers, a.cfg.Schedule.Delay, refresh.WithTelemetry(a.tel))
}

func (a *app) close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warnw("close failed", "error", err)
		}
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		a.log.Warnw("telemetry shutdown failed", "error", err)
	}
	logger.Sync()
}
