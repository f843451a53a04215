// Package reconcile runs the weekly and monthly reconciliation passes.
//
// A pass reads the goal store and the event ledger, writes one immutable
// record per member and period, and grows badge counters only when that
// record was inserted. Members are processed one at a time, each in its own
// store transaction, so a failure leaves every member either fully applied
// or untouched, and re-running a pass for the same period changes nothing.
package reconcile

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

const tracerName = "github.com/fitcrew/trainer-hub/reconcile"

// Deps are the stores and collaborators both passes read from.
type Deps struct {
	Members   member.Repository
	Goals     goal.Repository
	Activity  activity.Repository
	Results   reconciliation.Repository
	Calendar  *calendar.Calendar
	Publisher shared.EventPublisher
	Logger    *logger.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Members == nil, d.Goals == nil, d.Activity == nil, d.Results == nil:
		return fmt.Errorf("reconcile: repositories are required")
	case d.Calendar == nil:
		return fmt.Errorf("reconcile: calendar is required")
	}
	return nil
}

// MemberFailure is one member the pass could not process.
type MemberFailure struct {
	MemberID string `json:"member_id"`
	Error    string `json:"error"`
}

// Report summarizes one pass.
type Report struct {
	Pass          string          `json:"pass"`
	Period        string          `json:"period"`
	Processed     int             `json:"processed"`
	Written       int             `json:"written"`
	Skipped       int             `json:"skipped"`
	BadgesAwarded int             `json:"badges_awarded"`
	Failures      []MemberFailure `json:"failures,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	Duration      time.Duration   `json:"duration"`
}

// Failed reports whether any member failed.
func (r *Report) Failed() bool { return len(r.Failures) > 0 }

func (r *Report) fail(memberID string, err error) {
	r.Failures = append(r.Failures, MemberFailure{MemberID: memberID, Error: err.Error()})
}

func (r *Report) log(l *logger.Logger) {
	l.Info("reconciliation pass finished",
		"pass", r.Pass,
		logger.Period(r.Period),
		"processed", r.Processed,
		"written", r.Written,
		"skipped", r.Skipped,
		"badges_awarded", r.BadgesAwarded,
		"failures", len(r.Failures),
		logger.Latency(r.Duration),
	)
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
