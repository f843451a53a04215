// Package main is the entry point of the trainer hub worker.
//
// The worker runs the weekly and monthly reconciliation passes on their cron
// schedules. Run markers in the store make every fire idempotent, so a
// restarted worker catches up on the latest missed period and never
// reconciles the same week twice.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/fitcrew/trainer-hub/config"
	"github.com/fitcrew/trainer-hub/internal/app"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/scheduler"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/scheduler/jobs"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	configPath := flag.String("config", "", "path to config file (yaml)")
	once := flag.String("once", "", "run one job now and exit ("+
		jobs.WeeklyReconciliationName+" or "+jobs.MonthlyReconciliationName+")")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, once string) error {
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
	log := app.NewLogger(cfg.App).Named("worker")
	defer log.Sync()

	log.Info("starting trainer hub worker",
		"version", cfg.App.Version,
		"timezone", cfg.Calendar.Timezone,
		"weekly_cron", cfg.Scheduler.WeeklyCron,
		"monthly_cron", cfg.Scheduler.MonthlyCron,
	)

	if !cfg.Scheduler.Enabled && once == "" {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORE, CACHE, EVENTS, PASSES
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
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := scheduler.New(a.SchedulerConfig())
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	weekly := jobs.NewWeeklyReconciliationJob(a.Weekly, a.Monthly, a.Calendar, log)
	if err := sched.Register(weekly, cfg.Scheduler.WeeklyCron); err != nil {
		return fmt.Errorf("failed to register weekly job: %w", err)
	}
	monthly := jobs.NewMonthlyReconciliationJob(a.Monthly, a.Calendar)
	if err := sched.Register(monthly, cfg.Scheduler.MonthlyCron); err != nil {
		return fmt.Errorf("failed to register monthly job: %w", err)
	}

	if once != "" {
		result, err := sched.RunNow(ctx, once)
		if err != nil {
			return fmt.Errorf("job %s failed: %w", once, err)
		}
		log.Info("job completed",
			"job", result.JobName,
			"period", result.Period,
			"duration", result.Duration.String(),
		)
		return nil
	}

	if infos, err := sched.ListJobs(ctx); err == nil {
		for _, info := range infos {
			log.Info("job registered",
				"job", info.Name,
				"schedule", info.Schedule,
				"last_period", info.LastPeriod,
				"next_run", info.NextRun,
			)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. RUN UNTIL SIGNAL
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}
