// Package scheduler triggers recurring briefing runs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/newsfold/newsfold/topic"
)

// runTimeout bounds one scheduled briefing run.
const runTimeout = 15 * time.Minute

// Runner is the slice of the briefing engine the scheduler consumes.
type Runner interface {
	Run(ctx context.Context, userID string, sources []topic.Source) ([]topic.SummaryResult, error)
}

// Job is one recurring briefing.
type Job struct {
	// UserID owns the persisted results.
	UserID string
	// Schedule is a standard cron expression ("0 7 * * *").
	Schedule string
	// Sources are the inputs for every run of this job.
	Sources []topic.Source
}

// Scheduler runs briefing jobs on their cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *slog.Logger
}

// New creates a Scheduler around the given runner.
func New(runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger,
	}
}

// Add registers a job. Returns an error for an invalid schedule or job.
func (s *Scheduler) Add(job Job) error {
	if job.UserID == "" {
		return fmt.Errorf("job user id is required")
	}
	if len(job.Sources) == 0 {
		return fmt.Errorf("job for %s has no sources", job.UserID)
	}

	_, err := s.cron.AddFunc(job.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		s.logger.Info("Scheduled briefing starting", "user_id", job.UserID, "sources", len(job.Sources))
		results, err := s.runner.Run(ctx, job.UserID, job.Sources)
		if err != nil {
			s.logger.Error("Scheduled briefing failed", "user_id", job.UserID, "error", err)
			return
		}
		s.logger.Info("Scheduled briefing complete", "user_id", job.UserID, "topics", len(results))
	})
	if err != nil {
		return fmt.Errorf("schedule %q for %s: %w", job.Schedule, job.UserID, err)
	}
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
