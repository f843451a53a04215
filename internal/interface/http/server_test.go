package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitcrew/trainer-hub/internal/application/command"
	"github.com/fitcrew/trainer-hub/internal/application/query"
	"github.com/fitcrew/trainer-hub/internal/application/reconcile"
	api "github.com/fitcrew/trainer-hub/internal/interface/http"
	"github.com/fitcrew/trainer-hub/internal/interface/http/handlers"
	"github.com/fitcrew/trainer-hub/internal/testutil"
)

const adminKey = "let-me-in"

// Wednesday 2024-02-07 12:00 KST; the current week is 2024-02-05..11.
var now = testutil.At(2024, time.February, 7, 12, 0)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *api.APIError   `json:"error"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := testutil.NewStore(t)
	cal, _ := testutil.Calendar(now)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)

	register := command.NewRegisterMemberHandler(store.Members(), cal, nil)
	deps := reconcile.Deps{
		Members:  store.Members(),
		Goals:    store.Goals(),
		Activity: store.Activity(),
		Results:  store.Reconciliation(),
		Calendar: cal,
	}
	weekly, err := reconcile.NewWeeklyPass(deps)
	require.NoError(t, err)
	monthly, err := reconcile.NewMonthlyPass(deps)
	require.NoError(t, err)

	health := handlers.NewCompositeHealthChecker("test")
	health.AddCheck("store", handlers.NewPingCheck(store))

	srv, err := api.NewServer(api.Config{AdminKeyHash: string(hash)}, api.Dependencies{
		Calendar:             cal,
		RegisterMember:       register,
		SetGoal:              command.NewSetGoalHandler(register, store.Goals(), cal, nil),
		DeleteGoal:           command.NewDeleteGoalHandler(store.Goals(), cal, nil),
		ReportWeight:         command.NewReportWeightHandler(store.Goals(), cal, nil),
		RecordActivity:       command.NewRecordActivityHandler(register, store.Activity(), cal, nil, command.DefaultRecordActivityHandlerConfig()),
		GetMember:            query.NewGetMemberHandler(store.Members(), store.Reconciliation()),
		GetGoals:             query.NewGetGoalsHandler(store.Goals()),
		GetWeekProgress:      query.NewGetWeekProgressHandler(store.Goals(), store.Activity(), cal),
		GetRanking:           query.NewGetRankingHandler(store.Leaderboard(), nil, cal, query.GetRankingHandlerConfig{}, nil),
		PendingWeightReports: query.NewPendingWeightReportsHandler(store.Goals(), cal),
		Weekly:               weekly,
		Monthly:              monthly,
		HealthChecker:        health,
	})
	require.NoError(t, err)
	return &testServer{t: t, handler: srv.Handler()}
}

func (s *testServer) do(method, path string, body any, header ...string) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.NotEmpty(s.t, rec.Header().Get(handlers.RequestIDHeader))
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	status := decodeData[handlers.HealthStatus](t, env)
	assert.True(t, status.Healthy)
	assert.True(t, status.Checks["store"].Healthy)

	code, _ = s.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestMembers(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPut, "/api/v1/members/u1", map[string]string{"nickname": "alice"})
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)

	code, _ = s.do(http.MethodPut, "/api/v1/members/u1", map[string]string{"nickname": "alicia"})
	assert.Equal(t, http.StatusOK, code, "second registration renames")

	code, env = s.do(http.MethodGet, "/api/v1/members/u1", nil)
	require.Equal(t, http.StatusOK, code)
	m := decodeData[map[string]any](t, env)
	assert.Equal(t, "alicia", m["nickname"])
	assert.Contains(t, m["created_at"], "+09:00", "timestamps are rendered in the operating zone")

	code, env = s.do(http.MethodGet, "/api/v1/members/ghost", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestGoals(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodPut, "/api/v1/members/u1/goals/exercise", map[string]int{"per_week": 3})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodPut, "/api/v1/members/u1/goals/diet", map[string]int{"per_week": 9})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_argument", env.Error.Code)

	code, env = s.do(http.MethodPut, "/api/v1/members/u1/goals/weight", map[string]any{
		"weeks": 4, "current_weight": 80.0, "target_weight": 75.0,
	})
	require.Equal(t, http.StatusOK, code)
	g := decodeData[map[string]any](t, env)
	assert.Equal(t, "weight", g["kind"])
	spec := g["spec"].(map[string]any)
	assert.Equal(t, "2024-02-07", spec["start_date"])
	assert.Equal(t, "2024-03-05", spec["end_date"])

	code, env = s.do(http.MethodGet, "/api/v1/members/u1/goals", nil)
	require.Equal(t, http.StatusOK, code)
	goals := decodeData[map[string]any](t, env)
	active := goals["active"].(map[string]any)
	assert.Contains(t, active, "weight")
	assert.Contains(t, active, "exercise")
	assert.NotContains(t, active, "diet")

	code, env = s.do(http.MethodDelete, "/api/v1/members/u1/goals/diet", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, decodeData[map[string]any](t, env)["deactivated"])

	code, env = s.do(http.MethodDelete, "/api/v1/members/u1/goals/exercise", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decodeData[map[string]any](t, env)["deactivated"])

	code, env = s.do(http.MethodGet, "/api/v1/members/u1/goals/exercise/history", nil)
	require.Equal(t, http.StatusOK, code)
	history := decodeData[[]map[string]any](t, env)
	require.Len(t, history, 1)
	assert.Equal(t, false, history[0]["active"])
	assert.Equal(t, "freq_exercise", history[0]["kind"])

	code, env = s.do(http.MethodGet, "/api/v1/members/u1/goals?include_history=true", nil)
	require.Equal(t, http.StatusOK, code)
	byKind := decodeData[map[string]any](t, env)["history"].(map[string]any)
	for _, items := range byKind {
		for _, item := range items.([]any) {
			assert.NotEmpty(t, item.(map[string]any)["kind"], "every history entry names its kind")
		}
	}
	assert.NotEmpty(t, byKind)

	code, _ = s.do(http.MethodDelete, "/api/v1/members/u1/goals/sleep", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestActivityAndProgress(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodPut, "/api/v1/members/u1/goals/exercise", map[string]any{"nickname": "alice", "per_week": 2})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodPost, "/api/v1/members/u1/exercise", nil)
	require.Equal(t, http.StatusOK, code)
	first := decodeData[map[string]any](t, env)
	assert.Equal(t, "2024-02-07", first["date"])
	assert.Equal(t, true, first["credited"])

	code, env = s.do(http.MethodPost, "/api/v1/members/u1/exercise", map[string]string{"source": "forum"})
	require.Equal(t, http.StatusOK, code)
	second := decodeData[map[string]any](t, env)
	assert.Equal(t, false, second["credited"], "one exercise credit per day")
	assert.EqualValues(t, 1, second["count"])

	code, env = s.do(http.MethodPost, "/api/v1/members/u1/voice-sessions", map[string]any{
		"joined_at": "2024-02-06T20:00:00+09:00",
		"left_at":   "2024-02-06T20:40:00+09:00",
	})
	require.Equal(t, http.StatusOK, code)
	voice := decodeData[map[string]any](t, env)
	assert.Equal(t, "2024-02-06", voice["date"])
	assert.Equal(t, true, voice["credited"])

	for range 2 {
		code, _ = s.do(http.MethodPost, "/api/v1/members/u1/diet", map[string]string{"date": "2024-02-05"})
		require.Equal(t, http.StatusOK, code)
	}

	code, env = s.do(http.MethodGet, "/api/v1/members/u1/progress", nil)
	require.Equal(t, http.StatusOK, code)
	var progress struct {
		Window   map[string]string        `json:"window"`
		Exercise *query.FrequencyProgress `json:"exercise"`
		Daily    []map[string]any         `json:"daily"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Equal(t, "2024-02-05", progress.Window["start"])
	require.NotNil(t, progress.Exercise)
	assert.Equal(t, query.FrequencyProgress{Goal: 2, Done: 2, Achieved: true}, *progress.Exercise)
	require.Len(t, progress.Daily, 7)
	assert.EqualValues(t, 2, progress.Daily[0]["diet"])

	code, _ = s.do(http.MethodPost, "/api/v1/members/u1/exercise", map[string]string{"source": "telepathy"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, "/api/v1/members/u1/diet", map[string]string{"when": "now"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_body", env.Error.Code)
}

func TestReportWeight(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/members/u1/weight", map[string]float64{"weight": 79})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, decodeData[map[string]any](t, env)["updated"], "no weight goal drops the report")

	code, _ = s.do(http.MethodPut, "/api/v1/members/u1/goals/weight", map[string]any{
		"weeks": 2, "current_weight": 80.0, "target_weight": 75.0,
	})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/weight-reports/pending", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[[]query.PendingWeightReport](t, env), 1)

	code, env = s.do(http.MethodPost, "/api/v1/members/u1/weight", map[string]float64{"weight": 74.5})
	require.Equal(t, http.StatusOK, code)
	res := decodeData[map[string]any](t, env)
	assert.Equal(t, true, res["updated"])
	assert.Equal(t, true, res["achieved"])

	code, env = s.do(http.MethodGet, "/api/v1/weight-reports/pending", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decodeData[[]query.PendingWeightReport](t, env))

	code, _ = s.do(http.MethodPost, "/api/v1/members/u1/weight", map[string]float64{"weight": -1})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRankings(t *testing.T) {
	s := newTestServer(t)

	for _, id := range []string{"b", "a"} {
		code, _ := s.do(http.MethodPost, "/api/v1/members/"+id+"/exercise", map[string]string{"nickname": id})
		require.Equal(t, http.StatusOK, code)
	}

	code, env := s.do(http.MethodGet, "/api/v1/rankings/exercise", nil)
	require.Equal(t, http.StatusOK, code)
	var ranking struct {
		Kind    string `json:"kind"`
		Entries []struct {
			Rank     int    `json:"rank"`
			MemberID string `json:"member_id"`
			Score    int    `json:"score"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ranking))
	require.Len(t, ranking.Entries, 2)
	assert.Equal(t, "a", ranking.Entries[0].MemberID, "ties are broken by member id")
	assert.Equal(t, 1, ranking.Entries[1].Rank)

	code, _ = s.do(http.MethodGet, "/api/v1/rankings/badges?limit=3", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/v1/rankings/diet?start=2024-02-10&end=2024-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/v1/rankings/karma", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/v1/rankings/diet?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminReconcile(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/admin/reconcile/weekly", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing_admin_key", env.Error.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/reconcile/weekly", nil, handlers.AdminKeyHeader, "guess")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPut, "/api/v1/members/u1/goals/exercise", map[string]int{"per_week": 1})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodPost, "/api/v1/admin/reconcile/weekly", nil, handlers.AdminKeyHeader, adminKey)
	require.Equal(t, http.StatusOK, code)
	report := decodeData[reconcile.Report](t, env)
	assert.Equal(t, "2024-01-29", report.Period, "defaults to the last completed week")
	assert.Equal(t, 1, report.Written)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/reconcile/weekly?week_start=2024-02-06", nil, handlers.AdminKeyHeader, adminKey)
	assert.Equal(t, http.StatusBadRequest, code, "not a Monday")

	code, _ = s.do(http.MethodPost, "/api/v1/admin/reconcile/weekly?week_start=2024-02-12", nil, handlers.AdminKeyHeader, adminKey)
	assert.Equal(t, http.StatusBadRequest, code, "future week")

	code, env = s.do(http.MethodPost, "/api/v1/admin/reconcile/monthly", nil, handlers.AdminKeyHeader, adminKey)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-01", decodeData[reconcile.Report](t, env).Period)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/reconcile/monthly?month=2024-03", nil, handlers.AdminKeyHeader, adminKey)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodGet, "/api/v1/members/u1/weeks/2024-01-29", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, decodeData[map[string]any](t, env)["achieved_exercise"])

	code, _ = s.do(http.MethodGet, "/api/v1/members/u1/months/2024-01", nil)
	assert.Equal(t, http.StatusNotFound, code, "trophy rows are written for winners only")
}

func TestAdminClosedWithoutHash(t *testing.T) {
	auth := handlers.NewAdminKeyAuth("")
	assert.False(t, auth.Enabled())
	assert.False(t, auth.IsValid(adminKey))
}
