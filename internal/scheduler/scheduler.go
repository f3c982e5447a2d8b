// Package scheduler runs the periodic account watch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context) error

// Config holds scheduler configuration
type Config struct {
	Interval       string         // Duration (e.g., "5m") or cron expression (e.g., "*/5 * * * *")
	Timezone       *time.Location // Timezone for cron expressions (default: UTC)
	RunImmediately bool
	Logger         *slog.Logger
}

// RunStatus summarizes the executions so far.
type RunStatus struct {
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"lastRun,omitzero"`
	LastError string    `json:"lastError,omitempty"`
	NextRun   time.Time `json:"nextRun,omitzero"`
}

// Scheduler wraps a gocron scheduler holding a single job. Runs never
// overlap: a tick that fires while the previous run is still going is
// skipped.
type Scheduler struct {
	cron     gocron.Scheduler
	job      gocron.Job
	jobFunc  JobFunc
	interval string
	timezone *time.Location
	logger   *slog.Logger

	mu     sync.RWMutex
	status RunStatus
}

// New creates a scheduler for jobFunc. The job receives ctx on every run.
func New(ctx context.Context, cfg Config, jobFunc JobFunc) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	def, err := Definition(cfg.Interval)
	if err != nil {
		return nil, err
	}

	cron, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	s := &Scheduler{
		cron:     cron,
		jobFunc:  jobFunc,
		interval: cfg.Interval,
		timezone: cfg.Timezone,
		logger:   cfg.Logger,
	}

	opts := []gocron.JobOption{
		gocron.WithName("watch"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if cfg.RunImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := cron.NewJob(def, gocron.NewTask(s.run, ctx), opts...)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	s.job = job

	s.logger.Info("Watch scheduled", "schedule", Describe(cfg.Interval, cfg.Timezone))
	return s, nil
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	err := s.jobFunc(ctx)

	s.mu.Lock()
	s.status.Runs++
	s.status.LastRun = start
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Job execution failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("Job execution finished", "duration", time.Since(start))
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()

	if next, err := s.NextRun(); err == nil {
		s.logger.Info("Scheduler started", "next_run", next.Format(time.RFC3339), "timezone", s.timezone.String())
		return
	}
	s.logger.Info("Scheduler started")
}

// Stop waits for a running job and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.cron.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return next, nil
}

// Status returns a snapshot of the run history.
func (s *Scheduler) Status() RunStatus {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	if next, err := s.job.NextRun(); err == nil {
		st.NextRun = next
	}
	return st
}

// ExpectedInterval is the spacing between runs used for staleness checks.
// Cron schedules may be irregular; they get a conservative five minutes.
func (s *Scheduler) ExpectedInterval() time.Duration {
	if d, err := time.ParseDuration(s.interval); err == nil {
		return d
	}
	return 5 * time.Minute
}

// IsCronExpression reports whether s has the shape of a 5 or 6 field cron
// expression.
func IsCronExpression(s string) bool {
	n := len(strings.Fields(s))
	return n == 5 || n == 6
}

// Definition turns an interval into a gocron job definition. Six-field
// cron expressions carry a leading seconds field.
func Definition(interval string) (gocron.JobDefinition, error) {
	if interval == "" {
		return nil, errors.New("interval is required")
	}
	if IsCronExpression(interval) {
		return gocron.CronJob(interval, len(strings.Fields(interval)) == 6), nil
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval %q: %w", interval, err)
	}
	if d < time.Second {
		return nil, fmt.Errorf("interval %s is shorter than one second", d)
	}
	return gocron.DurationJob(d), nil
}

// Describe provides a human-readable description of the schedule
func Describe(interval string, timezone *time.Location) string {
	if timezone == nil {
		timezone = time.UTC
	}
	if IsCronExpression(interval) {
		return fmt.Sprintf("cron: %s (%s)", interval, timezone)
	}
	d, err := time.ParseDuration(interval)
	if err != nil {
		return "invalid: " + interval
	}
	return "every " + d.String()
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger interface
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger.With("component", "gocron")}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *gocronLoggerAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *gocronLoggerAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *gocronLoggerAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
