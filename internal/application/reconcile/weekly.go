package reconcile

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY PASS
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyPass writes one WeeklyStatus per member with an active goal.
type WeeklyPass struct {
	deps      Deps
	publisher shared.EventPublisher
	log       *logger.Logger
}

// NewWeeklyPass creates the pass.
func NewWeeklyPass(deps Deps) (*WeeklyPass, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &WeeklyPass{
		deps:      deps,
		publisher: shared.PublisherOrNop(deps.Publisher),
		log:       logger.OrNop(deps.Logger).Named("weekly_pass"),
	}, nil
}

// Run evaluates the week starting at weekStart, which must be a Monday.
// The error is non-nil only when the pass could not start; per-member
// failures are in the report.
func (p *WeeklyPass) Run(ctx context.Context, weekStart calendar.Date) (*Report, error) {
	week := calendar.WeekOf(weekStart)
	if weekStart.IsZero() || !week.Start.Equal(weekStart) {
		return nil, shared.ErrWeekStartNotMonday
	}

	ctx, span := tracer().Start(ctx, "reconcile.weekly",
		trace.WithAttributes(attribute.String("week_start", weekStart.String())))
	report := &Report{Pass: "weekly", Period: weekStart.String(), StartedAt: p.deps.Calendar.Now()}

	ids, err := p.deps.Goals.MembersWithActiveGoals(ctx)
	if err != nil {
		err = fmt.Errorf("weekly pass %s: %w", weekStart, err)
		endSpan(span, err)
		return nil, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			endSpan(span, err)
			return report, err
		}
		report.Processed++
		written, badges, err := p.member(ctx, id, week)
		if err != nil {
			p.log.Error("weekly reconciliation failed for member",
				logger.MemberID(id), logger.Period(report.Period), logger.Err(err))
			report.fail(id, err)
			continue
		}
		if written {
			report.Written++
			report.BadgesAwarded += badges
		} else {
			report.Skipped++
		}
	}

	report.Duration = p.deps.Calendar.Now().Sub(report.StartedAt)
	span.SetAttributes(
		attribute.Int("processed", report.Processed),
		attribute.Int("written", report.Written),
		attribute.Int("failures", len(report.Failures)),
	)
	endSpan(span, nil)
	report.log(p.log)
	return report, nil
}

func (p *WeeklyPass) member(ctx context.Context, memberID string, week calendar.Range) (written bool, badges int, err error) {
	ctx, span := tracer().Start(ctx, "reconcile.weekly.member",
		trace.WithAttributes(attribute.String("member_id", memberID)))
	defer func() { endSpan(span, err) }()

	in := reconciliation.WeekInput{Week: week}
	if in.Goals, err = p.deps.Goals.Active(ctx, memberID); err != nil {
		return false, 0, err
	}
	if in.ExerciseDone, err = p.deps.Activity.Sum(ctx, memberID, activity.KindExercise, week); err != nil {
		return false, 0, err
	}
	if in.DietDone, err = p.deps.Activity.Sum(ctx, memberID, activity.KindDiet, week); err != nil {
		return false, 0, err
	}
	if g := in.Goals.Weight; g != nil {
		in.LastWeightDay = p.deps.Calendar.DateOf(g.LastModified)
	}

	at := p.deps.Calendar.Now()
	status := reconciliation.EvaluateWeek(memberID, in, at)
	inserted, err := p.deps.Results.RecordWeek(ctx, status)
	if err != nil {
		return false, 0, err
	}
	if !inserted {
		p.log.Debug("weekly status already recorded", logger.MemberID(memberID), logger.Period(week.Start.String()))
		return false, 0, nil
	}

	period := week.Start.String()
	_ = p.publisher.Publish(shared.NewWeeklyStatusRecordedEvent(memberID, period,
		status.AchievedExercise, status.AchievedDiet, status.AchievedWeight, status.WeightUpdated, at))
	if status.EarnsWeeklyBadge() {
		badges++
		_ = p.publisher.Publish(shared.NewBadgeAwardedEvent(memberID, reconciliation.BadgeWeekly, period, at))
	}
	if status.EarnsBikiniBadge() {
		badges++
		_ = p.publisher.Publish(shared.NewBadgeAwardedEvent(memberID, reconciliation.BadgeBikini, period, at))
	}
	span.SetAttributes(attribute.Int("badges", badges))
	return true, badges, nil
}
