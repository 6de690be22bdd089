package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"reddit_tracker/internal/domain"
)

// Runner executes one acquisition run including notification publishing.
type Runner interface {
	RunAndNotify(ctx context.Context) (domain.AcquireResult, error)
}

// Scheduler triggers acquisition runs on a cron schedule. Runs are
// sequential by construction; a failed run is logged and the next
// scheduled run proceeds normally.
type Scheduler struct {
	cron       *cron.Cron
	runner     Runner
	spec       string
	runTimeout time.Duration
	logger     *slog.Logger
}

func New(runner Runner, spec string, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		runner:     runner,
		spec:       spec,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("schedule scrape job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "cron", s.spec)
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	s.logger.Info("starting scheduled scrape")

	res, err := s.runner.RunAndNotify(ctx)
	if err != nil {
		s.logger.Error("scheduled scrape failed", "error", err)
		return
	}

	s.logger.Info("scheduled scrape finished",
		"posts_found", res.PostsFound,
		"new_comments", res.NewComments,
	)
}
