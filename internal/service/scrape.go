package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reddit_tracker/internal/domain"
	"reddit_tracker/internal/source/reddit"
)

// blockedHint is appended to a blocked run's error detail so the
// operator knows the authenticated API sidesteps cloud-IP blocking.
const blockedHint = "; reddit may be blocking requests from cloud IPs, " +
	"set reddit.client_id and reddit.client_secret to use the official API instead"

// ScrapeService orchestrates one acquisition run: strategy selection,
// acquisition, and the run lifecycle log bracketing both.
type ScrapeService struct {
	selectStrategy func() Strategy
	log            ScrapeLog
	comments       CommentStore
	publisher      Publisher
	logger         *slog.Logger

	// One run at a time per store. The scheduler never overlaps runs,
	// but the sync-upload surface can trigger merges concurrently.
	mu sync.Mutex
}

// NewScrapeService builds the run orchestrator. selectStrategy is
// invoked fresh on every run so configuration changes (added
// credentials) take effect without a restart. publisher may be nil.
func NewScrapeService(
	selectStrategy func() Strategy,
	log ScrapeLog,
	comments CommentStore,
	publisher Publisher,
	logger *slog.Logger,
) *ScrapeService {
	return &ScrapeService{
		selectStrategy: selectStrategy,
		log:            log,
		comments:       comments,
		publisher:      publisher,
		logger:         logger.With("component", "scrape"),
	}
}

// Run executes one acquisition run. A lifecycle record is created
// before acquisition and finalized on every exit path, so a failure
// mid-crawl leaves a terminal error record rather than a permanently
// running one.
func (s *ScrapeService) Run(ctx context.Context) (domain.AcquireResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, res, err := s.run(ctx)
	return res, err
}

func (s *ScrapeService) run(ctx context.Context) (runID int64, res domain.AcquireResult, err error) {
	runID, err = s.log.Begin(ctx)
	if err != nil {
		return 0, res, fmt.Errorf("begin scrape log: %w", err)
	}

	defer func() {
		s.finalize(ctx, runID, res, err)
	}()

	strategy := s.selectStrategy()
	s.logger.Info("starting scrape",
		"run_id", runID,
		"strategy", strategy.Name(),
	)

	start := time.Now()
	res, err = strategy.Acquire(ctx)
	if err != nil {
		err = fmt.Errorf("acquire via %s: %w", strategy.Name(), err)
		return runID, res, err
	}

	s.logger.Info("scrape completed",
		"run_id", runID,
		"posts_found", res.PostsFound,
		"new_comments", res.NewComments,
		"duration", time.Since(start),
	)

	return runID, res, nil
}

// finalize records the terminal status. It runs on a context detached
// from cancellation so a canceled run still gets its error record.
func (s *ScrapeService) finalize(ctx context.Context, runID int64, res domain.AcquireResult, runErr error) {
	completion := domain.RunCompletion{
		Status:      domain.RunStatusSuccess,
		PostsFound:  res.PostsFound,
		NewComments: res.NewComments,
	}
	if runErr != nil {
		msg := runErr.Error()
		if errors.Is(runErr, reddit.ErrBlocked) {
			msg += blockedHint
		}
		completion.Status = domain.RunStatusError
		completion.ErrorMessage = &msg
	}

	if err := s.log.End(context.WithoutCancel(ctx), runID, completion); err != nil {
		s.logger.Error("failed to finalize scrape log",
			"run_id", runID,
			"error", err,
		)
	}
}

// RunAndNotify runs an acquisition and, when it surfaced new comments,
// publishes them for downstream notification and marks the run
// notified. The since watermark is captured before the run so the
// published set matches what this run made visible.
func (s *ScrapeService) RunAndNotify(ctx context.Context) (domain.AcquireResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := time.Unix(0, 0).UTC()
	last, err := s.log.LastSuccessful(ctx)
	if err != nil {
		return domain.AcquireResult{}, fmt.Errorf("get last successful scrape: %w", err)
	}
	if last != nil {
		since = last.StartedAt
	}

	runID, res, err := s.run(ctx)
	if err != nil {
		return res, err
	}

	if res.NewComments == 0 || s.publisher == nil {
		return res, nil
	}

	details, err := s.comments.NewSince(ctx, since)
	if err != nil {
		return res, fmt.Errorf("load new comments: %w", err)
	}

	published := 0
	for i := range details {
		if err := s.publisher.PublishNewComment(ctx, &details[i]); err != nil {
			s.logger.Error("failed to publish comment",
				"comment_id", details[i].ID,
				"error", err,
			)
			continue
		}
		published++
	}

	if published > 0 {
		if err := s.log.MarkNotified(ctx, runID); err != nil {
			s.logger.Error("failed to mark run notified",
				"run_id", runID,
				"error", err,
			)
		}
	}

	s.logger.Info("notification publishing done",
		"run_id", runID,
		"published", published,
		"total_new", len(details),
	)

	return res, nil
}
