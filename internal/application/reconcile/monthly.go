package reconcile

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MONTHLY PASS
// ══════════════════════════════════════════════════════════════════════════════

// MonthlyPass awards a trophy to every member whose weekly statuses for all
// Mondays of the month earned the weekly badge. Only winners get a row.
type MonthlyPass struct {
	deps      Deps
	publisher shared.EventPublisher
	log       *logger.Logger
}

// NewMonthlyPass creates the pass.
func NewMonthlyPass(deps Deps) (*MonthlyPass, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &MonthlyPass{
		deps:      deps,
		publisher: shared.PublisherOrNop(deps.Publisher),
		log:       logger.OrNop(deps.Logger).Named("monthly_pass"),
	}, nil
}

// Run evaluates ym. Safe to repeat: an existing trophy row wins.
func (p *MonthlyPass) Run(ctx context.Context, ym calendar.YearMonth) (*Report, error) {
	if ym.IsZero() {
		return nil, shared.ErrInvalidMonth
	}
	ctx, span := tracer().Start(ctx, "reconcile.monthly",
		trace.WithAttributes(attribute.String("year_month", ym.String())))
	report := &Report{Pass: "monthly", Period: ym.String(), StartedAt: p.deps.Calendar.Now()}

	ids, err := p.deps.Members.ListIDs(ctx)
	if err != nil {
		err = fmt.Errorf("monthly pass %s: %w", ym, err)
		endSpan(span, err)
		return nil, err
	}

	mondays := ym.Mondays()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			endSpan(span, err)
			return report, err
		}
		report.Processed++
		awarded, err := p.member(ctx, id, ym, mondays)
		if err != nil {
			p.log.Error("monthly reconciliation failed for member",
				logger.MemberID(id), logger.Period(report.Period), logger.Err(err))
			report.fail(id, err)
			continue
		}
		if awarded {
			report.Written++
			report.BadgesAwarded++
		} else {
			report.Skipped++
		}
	}

	report.Duration = p.deps.Calendar.Now().Sub(report.StartedAt)
	span.SetAttributes(
		attribute.Int("processed", report.Processed),
		attribute.Int("awarded", report.BadgesAwarded),
		attribute.Int("failures", len(report.Failures)),
	)
	endSpan(span, nil)
	report.log(p.log)
	return report, nil
}

func (p *MonthlyPass) member(ctx context.Context, memberID string, ym calendar.YearMonth, mondays []calendar.Date) (awarded bool, err error) {
	ctx, span := tracer().Start(ctx, "reconcile.monthly.member",
		trace.WithAttributes(attribute.String("member_id", memberID)))
	defer func() { endSpan(span, err) }()

	statuses, err := p.deps.Results.WeeklyStatuses(ctx, memberID, ym.Range())
	if err != nil {
		return false, err
	}
	if !reconciliation.EvaluateMonth(mondays, statuses) {
		return false, nil
	}

	at := p.deps.Calendar.Now()
	inserted, err := p.deps.Results.RecordTrophy(ctx, reconciliation.MonthlyTrophy{
		MemberID:  memberID,
		YearMonth: ym,
		Won:       true,
		AwardedAt: at,
	})
	if err != nil || !inserted {
		return false, err
	}
	_ = p.publisher.Publish(shared.NewTrophyAwardedEvent(memberID, ym.String(), at))
	return true, nil
}
