// Package http implements the REST API of the trainer hub ledger.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fitcrew/trainer-hub/internal/application/command"
	"github.com/fitcrew/trainer-hub/internal/application/query"
	"github.com/fitcrew/trainer-hub/internal/application/reconcile"
	"github.com/fitcrew/trainer-hub/internal/interface/http/handlers"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64

	// AdminKeyHash is the bcrypt hash of the X-Admin-Key value. Empty closes
	// the admin endpoints.
	AdminKeyHash string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 20 * time.Second,
		MaxBodyBytes:   64 << 10,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyReconciler runs the weekly pass for one week.
type WeeklyReconciler interface {
	Run(ctx context.Context, weekStart calendar.Date) (*reconcile.Report, error)
}

// MonthlyReconciler runs the monthly pass for one month.
type MonthlyReconciler interface {
	Run(ctx context.Context, ym calendar.YearMonth) (*reconcile.Report, error)
}

// Dependencies contains the application handlers the server routes to.
type Dependencies struct {
	Calendar *calendar.Calendar

	// Commands
	RegisterMember *command.RegisterMemberHandler
	SetGoal        *command.SetGoalHandler
	DeleteGoal     *command.DeleteGoalHandler
	ReportWeight   *command.ReportWeightHandler
	RecordActivity *command.RecordActivityHandler

	// Queries
	GetMember            *query.GetMemberHandler
	GetGoals             *query.GetGoalsHandler
	GetWeekProgress      *query.GetWeekProgressHandler
	GetRanking           *query.GetRankingHandler
	PendingWeightReports *query.PendingWeightReportsHandler

	// Admin
	Weekly  WeeklyReconciler
	Monthly MonthlyReconciler

	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

func (d Dependencies) validate() error {
	switch {
	case d.Calendar == nil:
		return errors.New("http: calendar is required")
	case d.RegisterMember == nil, d.SetGoal == nil, d.DeleteGoal == nil,
		d.ReportWeight == nil, d.RecordActivity == nil:
		return errors.New("http: command handlers are required")
	case d.GetMember == nil, d.GetGoals == nil, d.GetWeekProgress == nil,
		d.GetRanking == nil, d.PendingWeightReports == nil:
		return errors.New("http: query handlers are required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP API server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	admin      *handlers.AdminKeyAuth
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		admin:  handlers.NewAdminKeyAuth(config.AdminKeyHash),
		logger: logger.OrNop(deps.Logger).Named("http"),
	}
	if !s.admin.Enabled() {
		s.logger.Warn("admin key hash not configured, admin endpoints are closed")
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /health/live", s.handleLive)
	s.router.HandleFunc("GET /health/ready", s.handleReady)

	// ─────────────────────────────────────────────────────────────────────────
	// Members and goals
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("PUT /api/v1/members/{id}", s.handleRegisterMember)
	s.router.HandleFunc("GET /api/v1/members/{id}", s.handleGetMember)
	s.router.HandleFunc("GET /api/v1/members/{id}/weeks/{week_start}", s.handleGetWeeklyStatus)
	s.router.HandleFunc("GET /api/v1/members/{id}/months/{month}", s.handleGetMonthlyTrophy)

	s.router.HandleFunc("GET /api/v1/members/{id}/goals", s.handleGetGoals)
	s.router.HandleFunc("GET /api/v1/members/{id}/goals/{kind}/history", s.handleGetGoalHistory)
	s.router.HandleFunc("PUT /api/v1/members/{id}/goals/weight", s.handleSetWeightGoal)
	s.router.HandleFunc("PUT /api/v1/members/{id}/goals/{kind}", s.handleSetFrequencyGoal)
	s.router.HandleFunc("DELETE /api/v1/members/{id}/goals/{kind}", s.handleDeleteGoal)

	// ─────────────────────────────────────────────────────────────────────────
	// Activity
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/members/{id}/weight", s.handleReportWeight)
	s.router.HandleFunc("POST /api/v1/members/{id}/exercise", s.handleRecordExercise)
	s.router.HandleFunc("POST /api/v1/members/{id}/diet", s.handleRecordDiet)
	s.router.HandleFunc("POST /api/v1/members/{id}/voice-sessions", s.handleRecordVoiceSession)
	s.router.HandleFunc("GET /api/v1/members/{id}/progress", s.handleGetWeekProgress)

	// ─────────────────────────────────────────────────────────────────────────
	// Rankings and reports
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/rankings/{kind}", s.handleGetRanking)
	s.router.HandleFunc("GET /api/v1/weight-reports/pending", s.handlePendingWeightReports)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin
	// ─────────────────────────────────────────────────────────────────────────
	s.router.Handle("POST /api/v1/admin/reconcile/weekly", s.admin.Middleware(http.HandlerFunc(s.handleReconcileWeekly)))
	s.router.Handle("POST /api/v1/admin/reconcile/monthly", s.admin.Middleware(http.HandlerFunc(s.handleReconcileMonthly)))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router; the first middleware is outermost.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	return handlers.Chain(handler,
		handlers.RequestIDMiddleware,
		handlers.TracingMiddleware("github.com/fitcrew/trainer-hub/http"),
		s.loggingMiddleware,
		s.recoveryMiddleware,
		handlers.SecurityHeadersMiddleware,
		handlers.TimeoutMiddleware(s.config.RequestTimeout),
		handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes),
	)
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := handlers.NewStatusRecorder(w)

		reqLog := s.logger.WithRequestID(handlers.RequestID(r.Context()))
		next.ServeHTTP(rw, r.WithContext(logger.WithContext(r.Context(), reqLog)))

		log := reqLog.Info
		if rw.Status() >= http.StatusInternalServerError {
			log = reqLog.Warn
		}
		log("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			logger.Latency(time.Since(start)),
		)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"request_id", handlers.RequestID(r.Context()),
				)
				writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "address", s.config.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Addr
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		RequestID: handlers.RequestID(r.Context()),
	})
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(JSONResponse{
		Error:     &APIError{Code: code, Message: message},
		RequestID: handlers.RequestID(r.Context()),
	})
}
