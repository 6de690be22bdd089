package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"reddit_tracker/internal/domain"
)

const pqForeignKeyViolation = "23503"

type CommentStore struct {
	db *sqlx.DB
}

func NewCommentStore(db *sqlx.DB) *CommentStore {
	return &CommentStore{db: db}
}

// Insert creates the comment unless its external ID is already known.
// The statement deliberately omits sentiment and reply_status so the
// column defaults apply on first insert and a re-observation can never
// clobber values set by the classification or triage workflows.
// A reference to a post that was never inserted fails with
// domain.ErrUnknownPost.
func (s *CommentStore) Insert(ctx context.Context, comment *domain.Comment) (bool, error) {
	query := `
		INSERT INTO comments (id, post_id, author, body, created_utc, parent_id, score, first_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	exec := GetExecutor(ctx, s.db)
	res, err := exec.ExecContext(ctx, query,
		comment.ID,
		comment.PostID,
		comment.Author,
		comment.Body,
		comment.CreatedUTC,
		comment.ParentID,
		comment.Score,
		time.Now().UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return false, fmt.Errorf("%w: %s", domain.ErrUnknownPost, comment.PostID)
		}
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpdateReplyStatus sets the triage status for a comment. Used by the
// dashboard collaborator and by sync-merge reconciliation.
func (s *CommentStore) UpdateReplyStatus(ctx context.Context, commentID, status string) error {
	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx,
		"UPDATE comments SET reply_status = $1 WHERE id = $2",
		status, commentID,
	)
	return err
}

// UpdateSentiment sets the sentiment tag assigned by the
// classification workflow.
func (s *CommentStore) UpdateSentiment(ctx context.Context, commentID, sentiment string) error {
	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx,
		"UPDATE comments SET sentiment = $1 WHERE id = $2",
		sentiment, commentID,
	)
	return err
}

// NewSince returns comments first observed after the given instant,
// joined with their posts, newest first. The orchestrator feeds these
// to the notification publisher.
func (s *CommentStore) NewSince(ctx context.Context, since time.Time) ([]domain.CommentDetail, error) {
	query := `
		SELECT c.id, c.post_id, c.author, c.body, c.created_utc, c.parent_id,
		       c.score, c.sentiment, c.reply_status, c.first_seen_at,
		       p.title AS post_title, p.url AS post_url
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		WHERE c.first_seen_at > $1
		ORDER BY c.created_utc DESC`

	var details []domain.CommentDetail
	err := s.db.SelectContext(ctx, &details, query, since)
	return details, err
}

// WithoutSentiment returns comments not yet sentiment-tagged, most
// recently observed first. Consumed by the classification collaborator.
func (s *CommentStore) WithoutSentiment(ctx context.Context, limit int) ([]domain.Comment, error) {
	query := `
		SELECT id, post_id, author, body, created_utc, parent_id,
		       score, sentiment, reply_status, first_seen_at
		FROM comments
		WHERE sentiment = $1
		ORDER BY first_seen_at DESC
		LIMIT $2`

	var comments []domain.Comment
	err := s.db.SelectContext(ctx, &comments, query, domain.SentimentNeutral, limit)
	return comments, err
}

// ListAll returns every comment, oldest first, for the sync upload.
func (s *CommentStore) ListAll(ctx context.Context) ([]domain.Comment, error) {
	query := `
		SELECT id, post_id, author, body, created_utc, parent_id,
		       score, sentiment, reply_status, first_seen_at
		FROM comments
		ORDER BY created_utc`

	var comments []domain.Comment
	err := s.db.SelectContext(ctx, &comments, query)
	return comments, err
}
