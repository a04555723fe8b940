// Package scheduler runs the assistant's periodic jobs: reminder delivery,
// overdue marking, daily digests and the optional health ping.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// JobState represents the current state of a job.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobError
)

// String returns the lowercase name of the state.
func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON status output.
func (s JobState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// JobStatus holds the run bookkeeping of one job.
type JobStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	State     JobState      `json:"state"`
	Runs      int           `json:"runs"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
}

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	// RunAtStart runs the job once as soon as its loop starts.
	RunAtStart bool
}

// runTimeout is the maximum time allowed for a single job run.
const runTimeout = 2 * time.Minute

type jobEntry struct {
	job     Job
	trigger chan struct{}
}

// Scheduler runs each registered job on its own ticker. A job never
// overlaps itself; different jobs run concurrently.
type Scheduler struct {
	clock  clockwork.Clock
	logger *zap.Logger

	mu       sync.Mutex
	jobs     []*jobEntry
	statuses map[string]*JobStatus
	stopCh   chan struct{}
	group    *errgroup.Group
	running  bool
}

// New creates an empty Scheduler.
func New(clock clockwork.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:    clock,
		logger:   logger.Named("scheduler"),
		statuses: make(map[string]*JobStatus),
	}
}

// Register adds a job. Jobs registered while running start with the next
// Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, &jobEntry{job: job, trigger: make(chan struct{}, 1)})
	s.statuses[job.Name] = &JobStatus{
		Name:     job.Name,
		Interval: job.Interval,
		State:    JobIdle,
	}
}

// Start launches one loop per job. Loops end when Stop is called or ctx is
// cancelled. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.group = &errgroup.Group{}

	for _, entry := range s.jobs {
		stopCh := s.stopCh
		s.group.Go(func() error {
			s.loop(ctx, entry, stopCh)
			return nil
		})
	}
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop signals every loop and waits for them to return. A job that is
// mid-run finishes first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	group := s.group
	s.mu.Unlock()

	_ = group.Wait()
	s.logger.Info("scheduler stopped")
}

// Running reports whether the loops are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow asks the named job to run as soon as its loop is free. Requests
// made while one is already queued are coalesced.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.jobs {
		if entry.job.Name != name {
			continue
		}
		select {
		case entry.trigger <- struct{}{}:
		default:
		}
		return nil
	}
	return fmt.Errorf("%s: %w", name, ErrUnknownJob)
}

// Status returns every job's status in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, entry := range s.jobs {
		out = append(out, *s.statuses[entry.job.Name])
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, entry *jobEntry, stopCh <-chan struct{}) {
	ticker := s.clock.NewTicker(entry.job.Interval)
	defer ticker.Stop()

	if entry.job.RunAtStart {
		s.run(ctx, entry.job)
	}
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.run(ctx, entry.job)
		case <-entry.trigger:
			s.run(ctx, entry.job)
		}
	}
}

// run executes one job under a context that outlives Stop, so a run that
// has begun is not cut short.
func (s *Scheduler) run(ctx context.Context, job Job) {
	s.setStatus(job.Name, JobRunning, nil)

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)
	defer cancel()

	start := s.clock.Now()
	err := job.Run(runCtx)
	elapsed := s.clock.Since(start)

	if err != nil {
		s.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		s.setStatus(job.Name, JobError, err)
		return
	}
	s.logger.Debug("job finished", zap.String("job", job.Name), zap.Duration("elapsed", elapsed))
	s.setStatus(job.Name, JobIdle, nil)
}

// setStatus updates the status for a job.
func (s *Scheduler) setStatus(name string, state JobState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[name]
	if !ok {
		return
	}

	status.State = state
	if state == JobRunning {
		return
	}
	status.Runs++
	status.LastRun = s.clock.Now()
	status.LastError = ""
	if err != nil {
		status.LastError = err.Error()
	}
}
