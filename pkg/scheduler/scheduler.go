// Package scheduler runs the recurring clinic jobs on cron triggers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

var (
	// ErrUnknownJob is returned by RunNow for an unregistered ID.
	ErrUnknownJob = fmt.Errorf("%w: unknown job", apperrors.ErrNotFound)
	// ErrJobRunning is returned when a run of the same job is still in progress.
	ErrJobRunning = errors.New("job is already running")
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// Job is one recurring job.
type Job struct {
	ID   string
	Name string
	// Spec is a standard five-field cron expression.
	Spec string
	Run  JobFunc
}

// Options configures a Scheduler. Every field is optional.
type Options struct {
	Location *time.Location
	// Locker, when set, is consulted before every cron-triggered run so only
	// one instance runs a given fire time.
	Locker  Locker
	LockTTL time.Duration
	// OnError receives job errors and recovered panics.
	OnError func(jobID string, err error)
}

type entry struct {
	job     Job
	entryID cron.EntryID
	running atomic.Bool
}

// Scheduler wraps a cron runner with per-job overlap protection, panic
// recovery and an optional distributed lock.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	locker  Locker
	lockTTL time.Duration
	onError func(jobID string, err error)
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry

	ctx    context.Context
	cancel context.CancelFunc
}

func New(opts Options, logger *zap.Logger) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	logger = logger.Named("scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger.Sugar()})),
		loc:     loc,
		locker:  opts.Locker,
		lockTTL: lockTTL,
		onError: opts.OnError,
		logger:  logger,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds job, replacing any job already registered under the same ID.
func (s *Scheduler) Register(job Job) error {
	if job.ID == "" || job.Run == nil {
		return errors.New("job needs an ID and a body")
	}
	if job.Name == "" {
		job.Name = job.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{job: job}
	entryID, err := s.cron.AddFunc(job.Spec, func() { s.fire(e) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Spec, job.ID, err)
	}
	e.entryID = entryID

	if old, ok := s.entries[job.ID]; ok {
		s.cron.Remove(old.entryID)
		s.logger.Info("Replaced scheduled job", zap.String("job_id", job.ID))
	}
	s.entries[job.ID] = e

	s.logger.Info("Registered job",
		zap.String("job_id", job.ID),
		zap.String("name", job.Name),
		zap.String("spec", job.Spec))
	return nil
}

// Start begins firing triggers in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.Jobs())))
}

// Stop halts the triggers and waits for running jobs until ctx is done.
// Jobs still running after that have their context cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out; cancelling running jobs")
	}
	s.cancel()
}

// Jobs lists the registered jobs ordered by ID.
func (s *Scheduler) Jobs() []models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ScheduledJob, 0, len(s.entries))
	for _, e := range s.entries {
		job := models.ScheduledJob{
			ID:       e.job.ID,
			Name:     e.job.Name,
			CronSpec: e.job.Spec,
			Running:  e.running.Load(),
		}
		ce := s.cron.Entry(e.entryID)
		if !ce.Next.IsZero() {
			next := ce.Next
			job.NextRunAt = &next
		}
		if !ce.Prev.IsZero() {
			prev := ce.Prev
			job.PrevRunAt = &prev
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RunNow runs a job synchronously, outside its schedule. It skips the
// distributed lock but still refuses to overlap a running instance.
func (s *Scheduler) RunNow(ctx context.Context, jobID string) error {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	return s.run(ctx, e, "manual")
}

func (s *Scheduler) fire(e *entry) {
	ctx := s.ctx
	if s.locker != nil {
		key := lockKey(e.job.ID, time.Now().In(s.loc))
		acquired, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			// an unreachable lock store must not stop the schedule
			s.logger.Warn("Job lock unavailable; running without it",
				zap.String("job_id", e.job.ID),
				zap.Error(err))
		} else if !acquired {
			s.logger.Info("Job fire time claimed by another instance",
				zap.String("job_id", e.job.ID),
				zap.String("lock", key))
			return
		}
	}
	_ = s.run(ctx, e, "schedule")
}

func (s *Scheduler) run(ctx context.Context, e *entry, trigger string) (err error) {
	jobID := e.job.ID
	if !e.running.CompareAndSwap(false, true) {
		s.logger.Warn("Skipping job run; previous run still in progress",
			zap.String("job_id", jobID),
			zap.String("trigger", trigger))
		return ErrJobRunning
	}
	defer e.running.Store(false)

	started := time.Now()
	s.logger.Info("Job started", zap.String("job_id", jobID), zap.String("trigger", trigger))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", jobID, r)
		}
		elapsed := time.Since(started)
		if err != nil {
			s.logger.Error("Job failed",
				zap.String("job_id", jobID),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			if s.onError != nil {
				s.onError(jobID, err)
			}
			return
		}
		s.logger.Info("Job completed",
			zap.String("job_id", jobID),
			zap.Duration("elapsed", elapsed))
	}()

	return e.job.Run(ctx)
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
