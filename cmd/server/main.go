// Package main is the entry point of the trainer hub API server.
//
// The server accepts member registrations, goal changes and activity
// credits over HTTP and serves progress, rankings and reconciliation
// results. Periodic reconciliation runs in cmd/worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/fitcrew/trainer-hub/config"
	"github.com/fitcrew/trainer-hub/internal/app"
	httpserver "github.com/fitcrew/trainer-hub/internal/interface/http"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	configPath := flag.String("config", "", "path to config file (yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := app.NewLogger(cfg.App).Named("server")
	defer log.Sync()

	log.Info("starting trainer hub server",
		"version", cfg.App.Version,
		"timezone", cfg.Calendar.Timezone,
		"db_driver", cfg.Database.Driver,
		"redis", cfg.Redis.Enabled,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORE, CACHE, EVENTS, HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("error while releasing resources", "error", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	if cfg.HTTP.Addr != "" {
		httpCfg.Addr = cfg.HTTP.Addr
	}
	if cfg.HTTP.ReadTimeout > 0 {
		httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	}
	if cfg.HTTP.WriteTimeout > 0 {
		httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	}
	if cfg.HTTP.IdleTimeout > 0 {
		httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	}
	if cfg.HTTP.RequestTimeout > 0 {
		httpCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	}
	httpCfg.AdminKeyHash = cfg.HTTP.AdminKeyHash

	server, err := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Calendar:             a.Calendar,
		RegisterMember:       a.Commands.RegisterMember,
		SetGoal:              a.Commands.SetGoal,
		DeleteGoal:           a.Commands.DeleteGoal,
		ReportWeight:         a.Commands.ReportWeight,
		RecordActivity:       a.Commands.RecordActivity,
		GetMember:            a.Queries.GetMember,
		GetGoals:             a.Queries.GetGoals,
		GetWeekProgress:      a.Queries.GetWeekProgress,
		GetRanking:           a.Queries.GetRanking,
		PendingWeightReports: a.Queries.PendingWeightReports,
		Weekly:               a.Weekly,
		Monthly:              a.Monthly,
		HealthChecker:        a.HealthChecker(),
		Logger:               log.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. RUN UNTIL SIGNAL
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	start := time.Now()
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown completed", "uptime", time.Since(start).Round(time.Second).String())
	return nil
}
