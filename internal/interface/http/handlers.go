package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fitcrew/trainer-hub/internal/application/command"
	"github.com/fitcrew/trainer-hub/internal/application/query"
	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/goal"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"healthy": true,
			"uptime":  s.Uptime().Round(time.Second).String(),
		})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleReady fails while the store or the cache is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		if status := s.deps.HealthChecker.Check(r.Context()); !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMBER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerMemberRequest struct {
	Nickname string `json:"nickname"`
}

// handleRegisterMember handles PUT /api/v1/members/{id}. 201 on creation,
// 200 when the member already existed.
func (s *Server) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req registerMemberRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.deps.RegisterMember.Handle(r.Context(), command.RegisterMemberCommand{
		MemberID: r.PathValue("id"),
		Nickname: req.Nickname,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	m := *result.Member
	m.CreatedAt = s.local(m.CreatedAt)
	writeJSON(w, r, status, m)
}

// handleGetMember handles GET /api/v1/members/{id}
func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.GetMember.Member(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m.CreatedAt = s.local(m.CreatedAt)
	writeJSON(w, r, http.StatusOK, m)
}

// handleGetWeeklyStatus handles GET /api/v1/members/{id}/weeks/{week_start}
func (s *Server) handleGetWeeklyStatus(w http.ResponseWriter, r *http.Request) {
	weekStart, err := parseDate("week_start", r.PathValue("week_start"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.deps.GetMember.WeeklyStatus(r.Context(), r.PathValue("id"), weekStart)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st.RecordedAt = s.local(st.RecordedAt)
	writeJSON(w, r, http.StatusOK, st)
}

// handleGetMonthlyTrophy handles GET /api/v1/members/{id}/months/{month}
func (s *Server) handleGetMonthlyTrophy(w http.ResponseWriter, r *http.Request) {
	ym, err := parseMonth("month", r.PathValue("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.GetMember.MonthlyTrophy(r.Context(), r.PathValue("id"), ym)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t.AwardedAt = s.local(t.AwardedAt)
	writeJSON(w, r, http.StatusOK, t)
}

// ══════════════════════════════════════════════════════════════════════════════
// GOAL HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type setWeightGoalRequest struct {
	Nickname      string        `json:"nickname"`
	StartDate     calendar.Date `json:"start_date"`
	EndDate       calendar.Date `json:"end_date"`
	Weeks         int           `json:"weeks"`
	TargetWeight  float64       `json:"target_weight"`
	CurrentWeight float64       `json:"current_weight"`
}

type setFrequencyGoalRequest struct {
	Nickname string `json:"nickname"`
	PerWeek  int    `json:"per_week"`
}

// handleGetGoals handles GET /api/v1/members/{id}/goals
func (s *Server) handleGetGoals(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetGoals.Handle(r.Context(), query.GetGoalsQuery{
		MemberID:       r.PathValue("id"),
		IncludeHistory: queryBool(r, "include_history"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, g := range []*goal.Goal{result.Active.Weight, result.Active.Exercise, result.Active.Diet} {
		s.localGoal(g)
	}
	for _, history := range result.History {
		for _, g := range history {
			s.localGoal(g)
		}
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetGoalHistory handles GET /api/v1/members/{id}/goals/{kind}/history
func (s *Server) handleGetGoalHistory(w http.ResponseWriter, r *http.Request) {
	kind, err := goal.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history, err := s.deps.GetGoals.History(r.Context(), r.PathValue("id"), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, g := range history {
		s.localGoal(g)
	}
	if history == nil {
		history = []*goal.Goal{}
	}
	writeJSON(w, r, http.StatusOK, history)
}

// handleSetWeightGoal handles PUT /api/v1/members/{id}/goals/weight
func (s *Server) handleSetWeightGoal(w http.ResponseWriter, r *http.Request) {
	var req setWeightGoalRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.deps.SetGoal.HandleWeight(r.Context(), command.SetWeightGoalCommand{
		MemberID:      r.PathValue("id"),
		Nickname:      req.Nickname,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Weeks:         req.Weeks,
		TargetWeight:  req.TargetWeight,
		CurrentWeight: req.CurrentWeight,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.localGoal(result.Goal)
	writeJSON(w, r, http.StatusOK, result.Goal)
}

// handleSetFrequencyGoal handles PUT /api/v1/members/{id}/goals/{kind} for
// the exercise and diet kinds.
func (s *Server) handleSetFrequencyGoal(w http.ResponseWriter, r *http.Request) {
	kind, err := goal.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req setFrequencyGoalRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.deps.SetGoal.HandleFrequency(r.Context(), command.SetFrequencyGoalCommand{
		MemberID: r.PathValue("id"),
		Nickname: req.Nickname,
		Kind:     kind,
		PerWeek:  req.PerWeek,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.localGoal(result.Goal)
	writeJSON(w, r, http.StatusOK, result.Goal)
}

// handleDeleteGoal handles DELETE /api/v1/members/{id}/goals/{kind}
func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	kind, err := goal.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.DeleteGoal.Handle(r.Context(), command.DeleteGoalCommand{
		MemberID: r.PathValue("id"),
		Kind:     kind,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"kind":        kind.Short(),
		"deactivated": result.Deactivated,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type reportWeightRequest struct {
	Weight float64 `json:"weight"`
}

type reportWeightResponse struct {
	Updated  bool       `json:"updated"`
	Achieved bool       `json:"achieved"`
	Goal     *goal.Goal `json:"goal,omitempty"`
}

type recordActivityRequest struct {
	Nickname string        `json:"nickname"`
	Date     calendar.Date `json:"date"`
	Source   string        `json:"source"`
}

type voiceSessionRequest struct {
	Nickname string    `json:"nickname"`
	JoinedAt time.Time `json:"joined_at"`
	LeftAt   time.Time `json:"left_at"`
}

type activityResponse struct {
	Date     calendar.Date `json:"date"`
	Count    int           `json:"count"`
	Credited bool          `json:"credited"`
}

// handleReportWeight handles POST /api/v1/members/{id}/weight. A member
// without an active weight goal gets updated=false, not an error.
func (s *Server) handleReportWeight(w http.ResponseWriter, r *http.Request) {
	var req reportWeightRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.deps.ReportWeight.Handle(r.Context(), command.ReportWeightCommand{
		MemberID: r.PathValue("id"),
		Weight:   req.Weight,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.localGoal(result.Goal)
	writeJSON(w, r, http.StatusOK, reportWeightResponse{
		Updated:  result.Updated,
		Achieved: result.Achieved,
		Goal:     result.Goal,
	})
}

// handleRecordExercise handles POST /api/v1/members/{id}/exercise
func (s *Server) handleRecordExercise(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if !s.decode(w, r, &req) {
		return
	}
	source, err := parseSource(req.Source)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.RecordActivity.HandleExercise(r.Context(), command.RecordExerciseCommand{
		MemberID: r.PathValue("id"),
		Nickname: req.Nickname,
		Date:     req.Date,
		Source:   source,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, activityResponse{Date: result.Date, Count: result.Count, Credited: result.Credited})
}

// handleRecordDiet handles POST /api/v1/members/{id}/diet
func (s *Server) handleRecordDiet(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.deps.RecordActivity.HandleDiet(r.Context(), command.RecordDietCommand{
		MemberID: r.PathValue("id"),
		Nickname: req.Nickname,
		Date:     req.Date,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, activityResponse{Date: result.Date, Count: result.Count, Credited: result.Credited})
}

// handleRecordVoiceSession handles POST /api/v1/members/{id}/voice-sessions
func (s *Server) handleRecordVoiceSession(w http.ResponseWriter, r *http.Request) {
	var req voiceSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.deps.RecordActivity.HandleVoiceSession(r.Context(), command.RecordVoiceSessionCommand{
		MemberID: r.PathValue("id"),
		Nickname: req.Nickname,
		JoinedAt: req.JoinedAt,
		LeftAt:   req.LeftAt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, activityResponse{Date: result.Date, Count: result.Count, Credited: result.Credited})
}

type weekProgressResponse struct {
	*query.WeekProgress
	Daily []activity.DayCount `json:"daily"`
}

// handleGetWeekProgress handles GET /api/v1/members/{id}/progress. Any date
// in week_start selects its Monday-Sunday week; empty means this week.
func (s *Server) handleGetWeekProgress(w http.ResponseWriter, r *http.Request) {
	q := query.GetWeekProgressQuery{MemberID: r.PathValue("id")}
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		d, err := parseDate("week_start", raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		q.Window = calendar.WeekOf(d)
	}
	progress, err := s.deps.GetWeekProgress.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if progress.Weight != nil {
		progress.Weight.LastModified = s.local(progress.Weight.LastModified)
	}
	writeJSON(w, r, http.StatusOK, weekProgressResponse{WeekProgress: progress, Daily: progress.DailySlice()})
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING AND REPORT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetRanking handles GET /api/v1/rankings/{kind}. start and end bound
// the activity window; badges ignore them.
func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	q := query.GetRankingQuery{Kind: leaderboard.Kind(r.PathValue("kind"))}

	var err error
	if q.Window.Start, err = optionalDate(r, "start"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Window.End, err = optionalDate(r, "end"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Limit, err = optionalInt(r, "limit"); err != nil {
		s.writeError(w, r, err)
		return
	}

	ranking, err := s.deps.GetRanking.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ranking.Entries == nil {
		ranking.Entries = []leaderboard.Entry{}
	}
	ranking.GeneratedAt = s.local(ranking.GeneratedAt)
	writeJSON(w, r, http.StatusOK, ranking)
}

// handlePendingWeightReports handles GET /api/v1/weight-reports/pending
func (s *Server) handlePendingWeightReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.deps.PendingWeightReports.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for i := range reports {
		reports[i].LastModified = s.local(reports[i].LastModified)
	}
	if reports == nil {
		reports = []query.PendingWeightReport{}
	}
	writeJSON(w, r, http.StatusOK, reports)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleReconcileWeekly handles POST /api/v1/admin/reconcile/weekly. Without
// week_start the last completed week is reconciled. Weeks that have not
// started yet are rejected.
func (s *Server) handleReconcileWeekly(w http.ResponseWriter, r *http.Request) {
	if s.deps.Weekly == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Weekly reconciliation not configured")
		return
	}
	current := s.deps.Calendar.CurrentWeek().Start
	weekStart := current.AddDays(-7)
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		d, err := parseDate("week_start", raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		weekStart = d
	}
	if weekStart.After(current) {
		s.writeError(w, r, shared.InvalidArgument("http", "ReconcileWeekly", "week %s has not started", weekStart))
		return
	}

	report, err := s.deps.Weekly.Run(r.Context(), weekStart)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report.StartedAt = s.local(report.StartedAt)
	writeJSON(w, r, http.StatusOK, report)
}

// handleReconcileMonthly handles POST /api/v1/admin/reconcile/monthly.
// Without month the previous month is reconciled.
func (s *Server) handleReconcileMonthly(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monthly == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Monthly reconciliation not configured")
		return
	}
	current := s.deps.Calendar.CurrentMonth()
	ym := current.Prev()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := parseMonth("month", raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ym = parsed
	}
	if current.Before(ym) {
		s.writeError(w, r, shared.InvalidArgument("http", "ReconcileMonthly", "month %s has not started", ym))
		return
	}

	report, err := s.deps.Monthly.Run(r.Context(), ym)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report.StartedAt = s.local(report.StartedAt)
	writeJSON(w, r, http.StatusOK, report)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// writeError maps the domain error taxonomy onto status codes. Only
// unexpected errors are logged; their text never reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsInvalidArgument(err):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", err.Error())
	case shared.IsUnauthorized(err):
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, r, http.StatusGatewayTimeout, "timeout", "Request timeout exceeded")
	default:
		logger.FromContext(r.Context(), s.logger).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decode reads an optional JSON body into dst. An empty body leaves dst at
// its zero value. It writes the 400 itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
		return false
	}
	writeJSONError(w, r, http.StatusBadRequest, "invalid_body", fmt.Sprintf("invalid request body: %v", err))
	return false
}

// local renders t in the operating zone.
func (s *Server) local(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(s.deps.Calendar.Location())
}

func (s *Server) localGoal(g *goal.Goal) {
	if g != nil {
		g.LastModified = s.local(g.LastModified)
	}
}

func parseDate(name, raw string) (calendar.Date, error) {
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return calendar.Date{}, shared.WrapError("http", "Parse", shared.ErrInvalidArgument, name+" must be YYYY-MM-DD", err)
	}
	return d, nil
}

func parseMonth(name, raw string) (calendar.YearMonth, error) {
	ym, err := calendar.ParseYearMonth(raw)
	if err != nil {
		return calendar.YearMonth{}, shared.WrapError("http", "Parse", shared.ErrInvalidArgument, name+" must be YYYY-MM", err)
	}
	return ym, nil
}

func optionalDate(r *http.Request, key string) (calendar.Date, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return calendar.Date{}, nil
	}
	return parseDate(key, raw)
}

func optionalInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, shared.InvalidArgument("http", "Parse", "%s must be a non-negative integer", key)
	}
	return n, nil
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseSource accepts the detection channels a client may report.
func parseSource(raw string) (activity.Source, error) {
	switch s := activity.Source(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return activity.SourceManual, nil
	case activity.SourceManual, activity.SourceForum, activity.SourceVoice:
		return s, nil
	}
	return "", shared.InvalidArgument("http", "RecordExercise", "unknown source %q", raw)
}
