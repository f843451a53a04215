// Package app wires configuration, stores and application handlers into the
// object graph shared by the server and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitcrew/trainer-hub/config"
	"github.com/fitcrew/trainer-hub/internal/application/command"
	"github.com/fitcrew/trainer-hub/internal/application/eventhandler"
	"github.com/fitcrew/trainer-hub/internal/application/query"
	"github.com/fitcrew/trainer-hub/internal/application/reconcile"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/messaging"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/persistence"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/persistence/redis"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/scheduler"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/tracing"
	"github.com/fitcrew/trainer-hub/internal/interface/http/handlers"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// App holds the long-lived components of one process.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Calendar *calendar.Calendar
	Store    persistence.Store
	Bus      *messaging.InMemoryEventBus

	// Cache and Locker are nil when Redis is disabled.
	Cache  *redis.Cache
	Locker *redis.Locker

	Commands Commands
	Queries  Queries
	Weekly   *reconcile.WeeklyPass
	Monthly  *reconcile.MonthlyPass

	closers []func(context.Context) error
}

// Commands are the write-side handlers.
type Commands struct {
	RegisterMember *command.RegisterMemberHandler
	SetGoal        *command.SetGoalHandler
	DeleteGoal     *command.DeleteGoalHandler
	ReportWeight   *command.ReportWeightHandler
	RecordActivity *command.RecordActivityHandler
}

// Queries are the read-side handlers.
type Queries struct {
	GetMember            *query.GetMemberHandler
	GetGoals             *query.GetGoalsHandler
	GetWeekProgress      *query.GetWeekProgressHandler
	GetRanking           *query.GetRankingHandler
	PendingWeightReports *query.PendingWeightReportsHandler
}

// New builds the object graph. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	log = logger.OrNop(log)
	a := &App{
		Config:   cfg,
		Logger:   log,
		Calendar: calendar.New(cfg.Location, calendar.SystemClock{}),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// Tracing
	// ─────────────────────────────────────────────────────────────────────────
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.App.Name,
		Environment: string(cfg.App.Environment),
		Version:     cfg.App.Version,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	// ─────────────────────────────────────────────────────────────────────────
	// Store
	// ─────────────────────────────────────────────────────────────────────────
	a.Store, err = persistence.Open(ctx, persistence.Options{
		Driver:        cfg.Database.Driver,
		URL:           cfg.Database.URL,
		SQLitePath:    cfg.Database.SQLitePath,
		MaxConns:      cfg.Database.MaxConns,
		MinConns:      cfg.Database.MinConns,
		RunMigrations: cfg.Database.RunMigrations,
	}, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.Store.Close() })

	// ─────────────────────────────────────────────────────────────────────────
	// Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var rankingCache leaderboard.Cache
	if cfg.Redis.Enabled {
		rc := redis.DefaultConfig()
		rc.Addr = cfg.Redis.Addr
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		a.Cache, err = redis.NewCache(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return a.Cache.Close() })
		a.Locker = redis.NewLocker(a.Cache, cfg.Redis.LockTTL)
		rankingCache = redis.NewRankingCache(a.Cache)
		log.Info("redis connection established", "addr", rc.Addr)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Events
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	a.Bus = messaging.NewInMemoryEventBus(busCfg)
	a.closers = append(a.closers, func(context.Context) error { return a.Bus.Close() })

	var forward shared.EventPublisher
	if cfg.Kafka.Enabled {
		kp, err := messaging.NewKafkaPublisher(messaging.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		// Closed after the bus so queued events are still forwarded.
		a.closers = append(a.closers, func(context.Context) error { return kp.Close() })
		forward = kp
	}
	if err := eventhandler.Register(a.Bus, rankingCache, forward, log); err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	register := command.NewRegisterMemberHandler(a.Store.Members(), a.Calendar, a.Bus)
	a.Commands = Commands{
		RegisterMember: register,
		SetGoal:        command.NewSetGoalHandler(register, a.Store.Goals(), a.Calendar, a.Bus),
		DeleteGoal:     command.NewDeleteGoalHandler(a.Store.Goals(), a.Calendar, a.Bus),
		ReportWeight:   command.NewReportWeightHandler(a.Store.Goals(), a.Calendar, a.Bus),
		RecordActivity: command.NewRecordActivityHandler(register, a.Store.Activity(), a.Calendar, a.Bus,
			command.RecordActivityHandlerConfig{VoiceMinDuration: cfg.Ledger.VoiceMinDuration}),
	}
	a.Queries = Queries{
		GetMember:       query.NewGetMemberHandler(a.Store.Members(), a.Store.Reconciliation()),
		GetGoals:        query.NewGetGoalsHandler(a.Store.Goals()),
		GetWeekProgress: query.NewGetWeekProgressHandler(a.Store.Goals(), a.Store.Activity(), a.Calendar),
		GetRanking: query.NewGetRankingHandler(a.Store.Leaderboard(), rankingCache, a.Calendar,
			query.GetRankingHandlerConfig{DefaultLimit: cfg.Ledger.RankingLimit, CacheTTL: cfg.Redis.RankingTTL}, log),
		PendingWeightReports: query.NewPendingWeightReportsHandler(a.Store.Goals(), a.Calendar),
	}

	deps := reconcile.Deps{
		Members:   a.Store.Members(),
		Goals:     a.Store.Goals(),
		Activity:  a.Store.Activity(),
		Results:   a.Store.Reconciliation(),
		Calendar:  a.Calendar,
		Publisher: a.Bus,
		Logger:    log,
	}
	if a.Weekly, err = reconcile.NewWeeklyPass(deps); err != nil {
		return nil, err
	}
	if a.Monthly, err = reconcile.NewMonthlyPass(deps); err != nil {
		return nil, err
	}
	return a, nil
}

// NewLogger builds the process logger from the app section.
func NewLogger(cfg config.AppConfig) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.LogLevel)
	if cfg.LogFormat != "" {
		opts.Format = cfg.LogFormat
	} else if cfg.Environment == config.EnvProduction {
		opts.Format = "json"
	} else {
		opts.Format = "console"
	}
	return logger.New(opts).With("service", cfg.Name, "env", string(cfg.Environment))
}

// HealthChecker checks the store and, when enabled, Redis.
func (a *App) HealthChecker() *handlers.CompositeHealthChecker {
	hc := handlers.NewCompositeHealthChecker(a.Config.App.Version)
	hc.SetClock(a.Calendar.Now)
	hc.AddCheck("store", handlers.NewPingCheck(a.Store))
	if a.Cache != nil {
		hc.AddCheck("redis", handlers.NewPingCheck(a.Cache))
	}
	return hc
}

// SchedulerConfig builds the scheduler settings over the store's markers.
func (a *App) SchedulerConfig() scheduler.Config {
	sc := scheduler.DefaultConfig()
	sc.Calendar = a.Calendar
	sc.Markers = a.Store.Markers()
	sc.Logger = a.Logger
	if a.Locker != nil {
		sc.Locker = a.Locker
	}
	s := a.Config.Scheduler
	if s.PollInterval > 0 {
		sc.PollInterval = s.PollInterval
	}
	if s.Lookback > 0 {
		sc.Lookback = s.Lookback
	}
	if s.JobTimeout > 0 {
		sc.JobTimeout = s.JobTimeout
	}
	if s.RetryDelay > 0 {
		sc.RetryDelay = s.RetryDelay
	}
	return sc
}

// Close releases everything in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
