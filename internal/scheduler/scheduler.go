// Package scheduler re-runs the suite and housekeeping jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Well-known job names
const (
	SuiteJob = "suite"
	PruneJob = "prune"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	ctx        context.Context
	cron       *cron.Cron
	timezone   *time.Location
	jobTimeout time.Duration
	log        logrus.FieldLogger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New creates a new scheduler with the given timezone. Job runs derive their
// context from ctx, so cancelling it stops running jobs. Each run is bounded
// by jobTimeout; a run still going when the next one is due is skipped
// rather than stacked.
func New(ctx context.Context, timezone string, jobTimeout time.Duration, log logrus.FieldLogger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	log = log.WithField("component", "scheduler")
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.PrintfLogger(log)), cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)

	return &Scheduler{
		ctx:        ctx,
		cron:       c,
		jobs:       make(map[string]cron.EntryID),
		timezone:   loc,
		jobTimeout: jobTimeout,
		log:        log,
	}, nil
}

// AddJob adds a job with a cron schedule, replacing any job of the same name
// schedule format: "*/30 * * * *" (every 30 minutes)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(name, job); err != nil {
			s.log.Errorf("Job %s failed: %v", name, err)
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = entryID
	s.mu.Unlock()
	s.log.Infof("Added job: %s (schedule: %s)", name, schedule)

	return nil
}

// AddSuiteJob schedules the verification suite
func (s *Scheduler) AddSuiteJob(schedule string, job Job) error {
	return s.AddJob(SuiteJob, schedule, job)
}

// AddDailyJob adds a job at a specific time of day
// timeStr format: "03:00" or "18:30"
func (s *Scheduler) AddDailyJob(name, timeStr string, job Job) error {
	// Parse time
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format %s: %w", timeStr, err)
	}

	schedule := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	return s.AddJob(name, schedule, job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.log.Infof("Removed job: %s", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.log.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished; cancel the context given to New to make them finish early.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	s.log.Infof("Starting job: %s", name)
	start := time.Now()
	if err := job(ctx); err != nil {
		return err
	}
	s.log.Infof("Job %s completed in %v", name, time.Since(start).Round(time.Millisecond))
	return nil
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()

	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]JobInfo, 0, len(s.jobs))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
