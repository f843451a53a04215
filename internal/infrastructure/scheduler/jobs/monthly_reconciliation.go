package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fitcrew/trainer-hub/internal/application/reconcile"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// MonthlyReconciliationJob awards trophies for the month that ended before
// the fire instant.
type MonthlyReconciliationJob struct {
	monthly MonthlyRunner
	cal     *calendar.Calendar

	lastReport atomic.Pointer[reconcile.Report]
}

func NewMonthlyReconciliationJob(monthly MonthlyRunner, cal *calendar.Calendar) *MonthlyReconciliationJob {
	return &MonthlyReconciliationJob{monthly: monthly, cal: cal}
}

func (j *MonthlyReconciliationJob) Name() string { return MonthlyReconciliationName }

func (j *MonthlyReconciliationJob) Description() string {
	return "Awards monthly trophies for the previous month"
}

func (j *MonthlyReconciliationJob) Period(fire time.Time) string {
	return j.cal.DateOf(fire).YearMonth().Prev().String()
}

func (j *MonthlyReconciliationJob) Run(ctx context.Context, period string) error {
	ym, err := calendar.ParseYearMonth(period)
	if err != nil {
		return fmt.Errorf("monthly job period %q: %w", period, err)
	}
	report, err := j.monthly.Run(ctx, ym)
	if err != nil {
		return err
	}
	j.lastReport.Store(report)
	return nil
}

// LastReport returns the report of the latest completed run, or nil.
func (j *MonthlyReconciliationJob) LastReport() *reconcile.Report {
	return j.lastReport.Load()
}
