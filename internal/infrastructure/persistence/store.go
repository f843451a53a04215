// Package persistence selects and opens the ledger store.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/persistence/postgres"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/persistence/sqlite"
	"github.com/fitcrew/trainer-hub/pkg/logger"
	"github.com/fitcrew/trainer-hub/pkg/retry"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is the set of repositories both drivers provide.
type Store interface {
	Members() member.Repository
	Goals() goal.Repository
	Activity() activity.Repository
	Reconciliation() reconciliation.Repository
	Markers() reconciliation.MarkerStore
	Leaderboard() leaderboard.Repository
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*postgres.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Options configures Open.
type Options struct {
	Driver        string
	URL           string
	SQLitePath    string
	MaxConns      int32
	MinConns      int32
	RunMigrations bool
}

// Open connects to the configured driver. Postgres connections are retried
// with backoff since the database may still be starting.
func Open(ctx context.Context, opts Options, log *logger.Logger) (Store, error) {
	log = logger.OrNop(log)

	switch opts.Driver {
	case DriverPostgres:
		cfg := postgres.DefaultConfig()
		cfg.URL = opts.URL
		if opts.MaxConns > 0 {
			cfg.MaxConns = opts.MaxConns
		}
		if opts.MinConns > 0 {
			cfg.MinConns = opts.MinConns
		}

		r := retry.DatabaseRetrier(retry.WithOnRetry(func(attempt int, err error, next time.Duration) {
			log.Warn("postgres not ready, retrying", "attempt", attempt, "next", next, logger.Err(err))
		}))
		store, err := retry.DoWithDataUsing(ctx, r, func(ctx context.Context) (*postgres.Store, error) {
			return postgres.OpenStore(ctx, cfg, opts.RunMigrations)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		log.Info("postgres store ready", "migrations", opts.RunMigrations)
		return store, nil

	case DriverSQLite:
		store, err := sqlite.OpenStore(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info("sqlite store ready", "path", opts.SQLitePath)
		return store, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
}
