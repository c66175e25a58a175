package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"caseintake/internal/platform/config"
	"caseintake/internal/platform/httpserver"
	"caseintake/internal/platform/logger"
	"caseintake/internal/platform/metrics"
)

// main wires dependencies, exposes the HTTP router, and keeps the server
// lifecycle small. Business logic lives in the internal feature packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	app, err := build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := httpserver.New(cfg.Server.Addr, newRouter(app, reg, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if app.redis != nil {
		g.Go(func() error {
			watchRedis(gctx, app, 30*time.Second, log)
			return nil
		})
	}

	log.InfoContext(ctx, "caseintake started",
		"addr", cfg.Server.Addr,
		"case_store", app.storeKind,
		"event_sink", app.sinkKind,
		"record_cache", app.redis != nil,
	)
	return g.Wait()
}
