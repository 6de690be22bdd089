package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"reddit_tracker/internal/domain"
)

type ScrapeLogStore struct {
	db *sqlx.DB
}

func NewScrapeLogStore(db *sqlx.DB) *ScrapeLogStore {
	return &ScrapeLogStore{db: db}
}

// Begin creates a running run record and returns its ID.
func (s *ScrapeLogStore) Begin(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO scrape_log (started_at, status) VALUES ($1, $2) RETURNING id",
		time.Now().UTC(), domain.RunStatusRunning,
	).Scan(&id)
	return id, err
}

// End finalizes a run record. Callers guarantee exactly one End per
// Begin on every exit path; after End only the notified flag may change.
func (s *ScrapeLogStore) End(ctx context.Context, runID int64, completion domain.RunCompletion) error {
	query := `
		UPDATE scrape_log
		SET completed_at = $1, posts_found = $2, new_comments_found = $3,
		    status = $4, error_message = $5
		WHERE id = $6`

	_, err := s.db.ExecContext(ctx, query,
		time.Now().UTC(),
		completion.PostsFound,
		completion.NewComments,
		completion.Status,
		completion.ErrorMessage,
		runID,
	)
	return err
}

// MarkNotified records that a notification was dispatched for the run.
func (s *ScrapeLogStore) MarkNotified(ctx context.Context, runID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE scrape_log SET notified = TRUE WHERE id = $1",
		runID,
	)
	return err
}

// LastSuccessful returns the most recent successful run, or nil when
// no run has ever succeeded.
func (s *ScrapeLogStore) LastSuccessful(ctx context.Context) (*domain.ScrapeRun, error) {
	query := `
		SELECT id, started_at, completed_at, posts_found, new_comments_found,
		       status, error_message, notified
		FROM scrape_log
		WHERE status = $1
		ORDER BY completed_at DESC
		LIMIT 1`

	var run domain.ScrapeRun
	err := s.db.GetContext(ctx, &run, query, domain.RunStatusSuccess)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent returns the latest run records, newest first.
func (s *ScrapeLogStore) Recent(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	query := `
		SELECT id, started_at, completed_at, posts_found, new_comments_found,
		       status, error_message, notified
		FROM scrape_log
		ORDER BY started_at DESC
		LIMIT $1`

	var runs []domain.ScrapeRun
	err := s.db.SelectContext(ctx, &runs, query, limit)
	return runs, err
}
