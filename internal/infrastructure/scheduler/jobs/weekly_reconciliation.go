// Package jobs contains the scheduled reconciliation jobs.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fitcrew/trainer-hub/internal/application/reconcile"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// Job names double as run marker keys; renaming one re-runs its latest period.
const (
	WeeklyReconciliationName  = "weekly_reconciliation"
	MonthlyReconciliationName = "monthly_reconciliation"
)

// WeeklyRunner runs the weekly pass for the week starting at weekStart.
type WeeklyRunner interface {
	Run(ctx context.Context, weekStart calendar.Date) (*reconcile.Report, error)
}

// MonthlyRunner runs the monthly pass for ym.
type MonthlyRunner interface {
	Run(ctx context.Context, ym calendar.YearMonth) (*reconcile.Report, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY RECONCILIATION JOB
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyReconciliationJob writes the week's statuses. The period is the
// Monday of the week containing the fire instant.
//
// A week that starts in a month that has already ended straddles the month
// boundary: the monthly pass for that month ran before this week's status
// existed, so the job re-runs it. The monthly pass is idempotent.
type WeeklyReconciliationJob struct {
	weekly  WeeklyRunner
	monthly MonthlyRunner
	cal     *calendar.Calendar
	logger  *logger.Logger

	lastReport atomic.Pointer[reconcile.Report]
}

// NewWeeklyReconciliationJob creates the job. monthly may be nil to skip
// the straddling-week re-run.
func NewWeeklyReconciliationJob(weekly WeeklyRunner, monthly MonthlyRunner, cal *calendar.Calendar, log *logger.Logger) *WeeklyReconciliationJob {
	return &WeeklyReconciliationJob{
		weekly:  weekly,
		monthly: monthly,
		cal:     cal,
		logger:  logger.OrNop(log).Named(WeeklyReconciliationName),
	}
}

func (j *WeeklyReconciliationJob) Name() string { return WeeklyReconciliationName }

func (j *WeeklyReconciliationJob) Description() string {
	return "Records weekly goal status and awards weekly and bikini badges"
}

func (j *WeeklyReconciliationJob) Period(fire time.Time) string {
	return calendar.WeekOf(j.cal.DateOf(fire)).Start.String()
}

func (j *WeeklyReconciliationJob) Run(ctx context.Context, period string) error {
	weekStart, err := calendar.ParseDate(period)
	if err != nil {
		return fmt.Errorf("weekly job period %q: %w", period, err)
	}
	report, err := j.weekly.Run(ctx, weekStart)
	if err != nil {
		return err
	}
	j.lastReport.Store(report)

	ym := weekStart.YearMonth()
	if j.monthly == nil || !ym.Before(j.cal.CurrentMonth()) {
		return nil
	}
	j.logger.Info("week straddles a finished month, re-running monthly pass", logger.Period(ym.String()))
	if _, err := j.monthly.Run(ctx, ym); err != nil {
		return fmt.Errorf("monthly re-run for %s: %w", ym, err)
	}
	return nil
}

// LastReport returns the report of the latest completed run, or nil.
func (j *WeeklyReconciliationJob) LastReport() *reconcile.Report {
	return j.lastReport.Load()
}
