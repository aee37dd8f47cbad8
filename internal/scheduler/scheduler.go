// Package scheduler runs named tasks on 6-field cron schedules (seconds
// first). Every run gets its own correlation ID and is timed and logged.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/gomyth/internal/observability"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

// Parser accepts "sec min hour dom month dow" and descriptors like @every.
var Parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler manages task scheduling using cron expressions.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	logger  *slog.Logger
	entries map[string]cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Overlapping runs of the same task are skipped.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, "scheduler")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers task under name on the cron expression expr.
func (s *Scheduler) Add(name, expr string, task Task) error {
	schedule, err := Parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("task %q already scheduled", name)
	}
	id := s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(name, task) }))
	s.entries[name] = id

	s.logger.Info("task scheduled",
		slog.String("task", name),
		slog.String("cron", expr),
		slog.Time("next_run", schedule.Next(time.Now())))
	return nil
}

// RunNow runs the named task synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string, task Task) error {
	return s.execute(ctx, name, task)
}

func (s *Scheduler) run(name string, task Task) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	// Errors are logged by execute.
	_ = s.execute(ctx, name, task)
}

func (s *Scheduler) execute(ctx context.Context, name string, task Task) (err error) {
	id := uuid.NewString()
	logger := observability.WithCorrelationID(s.logger, id).With(slog.String("task", name))
	ctx = observability.ContextWithCorrelationID(ctx, id)
	ctx = observability.ContextWithLogger(ctx, logger)

	done := observability.TimedOperationWithError(ctx, logger, name, &err)
	defer done()
	return task(ctx)
}

// Start begins running scheduled tasks until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info("scheduler started", slog.Int("tasks", len(s.entries)))
	return nil
}

// Stop stops the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// Next returns the next run time of the named task, or zero if it is not
// scheduled or the scheduler is stopped.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// ParseCron validates a cron expression and returns the next run time.
func ParseCron(expr string, now time.Time) (time.Time, error) {
	schedule, err := Parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(now), nil
}

// ValidateCron validates a cron expression.
func ValidateCron(expr string) error {
	_, err := Parser.Parse(expr)
	return err
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
