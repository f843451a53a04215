// Package scheduler runs the reconciliation jobs on calendar-aligned
// schedules.
//
// There are no in-memory timers to lose on restart. Every poll walks the
// cron fire instants within the lookback, maps each to the period it
// covers, and runs, oldest first, every period after the job's persisted
// run marker. The marker is saved after each successful period, so a worker
// that was down across several fire instants catches up on all of them on
// its next poll. A job that has never run starts from its latest period.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/fitcrew/trainer-hub/internal/domain/reconciliation"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a period-keyed scheduled job.
type Job interface {
	// Name is the unique job name and the run marker key.
	Name() string

	// Description returns a human-readable description of the job.
	Description() string

	// Period maps a fire instant to the period key the run covers. Keys
	// must sort chronologically as strings (YYYY-MM-DD, YYYY-MM).
	Period(fire time.Time) string

	// Run processes one period. Runs must be safe to repeat.
	Run(ctx context.Context, period string) error
}

// Locker serializes a job across worker replicas. Acquire fails when
// another replica holds the lock.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string        `json:"job"`
	RunID       string        `json:"run_id"`
	Period      string        `json:"period"`
	Manual      bool          `json:"manual"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Scheduler.
type Config struct {
	Calendar *calendar.Calendar
	Markers  reconciliation.MarkerStore

	// Locker is optional; without it only the in-process guard applies.
	Locker Locker
	Logger *logger.Logger

	// PollInterval between due checks (default 30s).
	PollInterval time.Duration

	// Lookback bounds the search for the latest fire instant (default 40 days).
	Lookback time.Duration

	// JobTimeout bounds one run (default 30m).
	JobTimeout time.Duration

	// RetryDelay is the pause after a failed run before the same period is
	// tried again (default 5m).
	RetryDelay time.Duration
}

// DefaultConfig returns sensible defaults; Calendar and Markers must be set.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		Lookback:     40 * 24 * time.Hour,
		JobTimeout:   30 * time.Minute,
		RetryDelay:   5 * time.Minute,
	}
}

type scheduledJob struct {
	job      Job
	spec     string
	schedule cron.Schedule

	inFlight atomic.Bool

	// guarded by Scheduler.mu
	lastResult  *JobResult
	lastFailure time.Time
	failedFor   string
}

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	mu     sync.RWMutex
	config Config
	log    *logger.Logger
	parser cron.Parser

	jobs    map[string]*scheduledJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *Metrics
}

// New creates a Scheduler.
func New(config Config) (*Scheduler, error) {
	if config.Calendar == nil {
		return nil, errors.New("scheduler: calendar is required")
	}
	if config.Markers == nil {
		return nil, errors.New("scheduler: marker store is required")
	}
	def := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.Lookback <= 0 {
		config.Lookback = def.Lookback
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = def.JobTimeout
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	return &Scheduler{
		config:  config,
		log:     logger.OrNop(config.Logger).Named("scheduler"),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		jobs:    make(map[string]*scheduledJob),
		metrics: newMetrics(),
	}, nil
}

// ParseSchedule validates a 5-field cron spec.
func ParseSchedule(spec string) (cron.Schedule, error) {
	return cron.ParseStandard(spec)
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register adds a job with a 5-field cron spec evaluated in the calendar's
// location.
func (s *Scheduler) Register(job Job, spec string) error {
	if job == nil {
		return ErrNilJob
	}
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}
	s.jobs[name] = &scheduledJob{job: job, spec: spec, schedule: schedule}

	s.log.Info("job registered",
		"job", name,
		"schedule", spec,
		"next_run", schedule.Next(s.now()).Format(time.RFC3339),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start polls immediately and then every PollInterval until ctx is done or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	s.log.Info("scheduler started", "jobs_count", len(s.jobs), "poll_interval", s.config.PollInterval.String())

	s.wg.Add(1)
	go s.runLoop(ctx)
	return nil
}

// Stop cancels the loop and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	_ = s.Stop()
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll starts a catch-up walk for every job with pending periods, each in
// its own goroutine.
func (s *Scheduler) poll(ctx context.Context) {
	now := s.now()

	s.mu.RLock()
	jobs := make([]*scheduledJob, 0, len(s.jobs))
	for _, sj := range s.jobs {
		jobs = append(jobs, sj)
	}
	s.mu.RUnlock()

	for _, sj := range jobs {
		marker, err := s.config.Markers.LastRun(ctx, sj.job.Name())
		if err != nil {
			s.log.Error("failed to read run marker", "job", sj.job.Name(), logger.Err(err))
			continue
		}
		pending := s.pendingPeriods(sj, marker, now)
		if len(pending) == 0 || !s.retryAllowed(sj, pending[0], now) {
			continue
		}
		if !sj.inFlight.CompareAndSwap(false, true) {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer sj.inFlight.Store(false)
			s.catchUp(ctx, sj, pending)
		}()
	}
}

// catchUp runs periods oldest first and stops at the first failure, so a
// later marker never hides an earlier missed period.
func (s *Scheduler) catchUp(ctx context.Context, sj *scheduledJob, periods []string) {
	if len(periods) > 1 {
		s.log.Info("catching up on missed periods", "job", sj.job.Name(), "periods", periods)
	}
	for _, period := range periods {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.execute(ctx, sj, period, false); err != nil {
			return
		}
	}
}

// pendingPeriods lists the periods of the fires within the lookback that
// come after the marker, oldest first. Without a marker only the latest
// period is pending.
func (s *Scheduler) pendingPeriods(sj *scheduledJob, marker *reconciliation.RunMarker, now time.Time) []string {
	var periods []string
	for _, fire := range s.fires(sj.schedule, now) {
		period := sj.job.Period(fire)
		if n := len(periods); n > 0 && periods[n-1] == period {
			continue
		}
		if marker == nil || period > marker.Period {
			periods = append(periods, period)
		}
	}
	if marker == nil && len(periods) > 1 {
		periods = periods[len(periods)-1:]
	}
	return periods
}

// fires returns the fire instants in (now-lookback, now], oldest first.
func (s *Scheduler) fires(schedule cron.Schedule, now time.Time) []time.Time {
	var out []time.Time
	for t := now.Add(-s.config.Lookback); ; {
		next := schedule.Next(t)
		if next.IsZero() || next.After(now) {
			break
		}
		out = append(out, next)
		t = next
	}
	return out
}

// latestFire returns the last fire instant in (now-lookback, now].
func (s *Scheduler) latestFire(schedule cron.Schedule, now time.Time) (time.Time, bool) {
	fires := s.fires(schedule, now)
	if len(fires) == 0 {
		return time.Time{}, false
	}
	return fires[len(fires)-1], true
}

func (s *Scheduler) due(ctx context.Context, job, period string) (bool, error) {
	marker, err := s.config.Markers.LastRun(ctx, job)
	if err != nil {
		return false, err
	}
	return marker == nil || period > marker.Period, nil
}

func (s *Scheduler) retryAllowed(sj *scheduledJob, period string, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sj.failedFor != period || now.Sub(sj.lastFailure) >= s.config.RetryDelay
}

// execute runs one period under the cross-replica lock and saves the
// marker after success. The caller holds the in-flight flag.
func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob, period string, manual bool) (*JobResult, error) {
	name := sj.job.Name()
	log := s.log.With("job", name, logger.Period(period))

	if s.config.Locker != nil {
		release, err := s.config.Locker.Acquire(ctx, name)
		if err != nil {
			log.Debug("job lock not acquired", logger.Err(err))
			return nil, fmt.Errorf("%w: %s: %v", ErrJobInFlight, name, err)
		}
		defer release()

		// Another replica may have finished the period while we waited.
		if !manual {
			if due, err := s.due(ctx, name, period); err != nil || !due {
				return nil, err
			}
		}
	}

	result := &JobResult{
		JobName:   name,
		RunID:     uuid.NewString(),
		Period:    period,
		Manual:    manual,
		StartedAt: s.now(),
	}
	log = log.With("run_id", result.RunID)
	log.Info("job started", "manual", manual)

	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := sj.job.Run(runCtx, period)
	cancel()

	if err == nil {
		err = s.config.Markers.SaveRun(ctx, reconciliation.RunMarker{
			Job:    name,
			Period: period,
			RanAt:  s.now(),
		})
	}

	result.CompletedAt = s.now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}
	s.metrics.record(name, result.Duration, result.Success)

	s.mu.Lock()
	sj.lastResult = result
	if err != nil {
		sj.failedFor, sj.lastFailure = period, result.CompletedAt
	} else {
		sj.failedFor = ""
	}
	s.mu.Unlock()

	if err != nil {
		log.Error("job failed", logger.Latency(result.Duration), logger.Err(err))
		return result, err
	}
	log.Info("job completed", logger.Latency(result.Duration))
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MANUAL EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// RunNow runs a job for the period of its latest fire instant (or of now,
// if it has not fired within the lookback), regardless of its marker.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.RLock()
	sj, exists := s.jobs[jobName]
	s.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	if !sj.inFlight.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %s", ErrJobInFlight, jobName)
	}
	defer sj.inFlight.Store(false)

	now := s.now()
	fire, ok := s.latestFire(sj.schedule, now)
	if !ok {
		fire = now
	}
	return s.execute(ctx, sj, sj.job.Period(fire), true)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFO
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo contains information about a registered job.
type JobInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule"`
	LastPeriod  string     `json:"last_period,omitempty"`
	LastRanAt   time.Time  `json:"last_ran_at,omitzero"`
	DuePeriod   string     `json:"due_period,omitempty"`
	NextRun     time.Time  `json:"next_run"`
	Running     bool       `json:"running"`
	LastResult  *JobResult `json:"last_result,omitempty"`
}

// ListJobs returns information about all registered jobs, by name.
func (s *Scheduler) ListJobs(ctx context.Context) ([]JobInfo, error) {
	now := s.now()

	s.mu.RLock()
	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		info := JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Schedule:    sj.spec,
			NextRun:     sj.schedule.Next(now),
			Running:     sj.inFlight.Load(),
			LastResult:  sj.lastResult,
		}
		if fire, ok := s.latestFire(sj.schedule, now); ok {
			info.DuePeriod = sj.job.Period(fire)
		}
		infos = append(infos, info)
	}
	s.mu.RUnlock()

	for i := range infos {
		marker, err := s.config.Markers.LastRun(ctx, infos[i].Name)
		if err != nil {
			return nil, err
		}
		if marker != nil {
			infos[i].LastPeriod = marker.Period
			infos[i].LastRanAt = marker.RanAt
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Metrics returns scheduler metrics.
func (s *Scheduler) Metrics() *Metrics {
	return s.metrics
}

func (s *Scheduler) now() time.Time {
	return s.config.Calendar.Now()
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics tracks job executions.
type Metrics struct {
	mu sync.RWMutex

	TotalExecutions int64
	TotalFailures   int64
	ExecutionsByJob map[string]int64
	FailuresByJob   map[string]int64
	DurationsByJob  map[string]time.Duration
}

func newMetrics() *Metrics {
	return &Metrics{
		ExecutionsByJob: make(map[string]int64),
		FailuresByJob:   make(map[string]int64),
		DurationsByJob:  make(map[string]time.Duration),
	}
}

func (m *Metrics) record(jobName string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalExecutions++
	m.ExecutionsByJob[jobName]++
	m.DurationsByJob[jobName] += duration
	if !success {
		m.TotalFailures++
		m.FailuresByJob[jobName]++
	}
}

// Executions returns the number of runs of jobName.
func (m *Metrics) Executions(jobName string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ExecutionsByJob[jobName]
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilJob is returned when trying to register a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrInvalidSchedule is returned for unparsable cron specs.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrJobAlreadyExists is returned when a job with the same name already exists.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobInFlight is returned when the job is already running here or on
	// another replica.
	ErrJobInFlight = errors.New("job already running")

	// ErrSchedulerAlreadyRunning is returned when Start is called on a running scheduler.
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned when Stop is called on a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)
