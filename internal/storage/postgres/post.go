package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"reddit_tracker/internal/domain"
)

type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// Insert creates the post unless its external ID is already known.
// Returns true when the row was newly inserted; re-insertion is a
// no-op and never mutates an existing row.
func (s *PostStore) Insert(ctx context.Context, post *domain.Post) (bool, error) {
	query := `
		INSERT INTO posts (id, title, subreddit, url, created_utc, first_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	exec := GetExecutor(ctx, s.db)
	res, err := exec.ExecContext(ctx, query,
		post.ID,
		post.Title,
		post.Subreddit,
		post.URL,
		post.CreatedUTC,
		time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Exists reports whether the post ID is known. It honors an in-flight
// transaction, so posts inserted earlier in the same transaction are
// visible.
func (s *PostStore) Exists(ctx context.Context, id string) (bool, error) {
	exec := GetExecutor(ctx, s.db)

	var exists bool
	err := exec.QueryRowxContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)", id,
	).Scan(&exists)
	return exists, err
}

// ListAll returns every post, oldest first, for the sync upload.
func (s *PostStore) ListAll(ctx context.Context) ([]domain.Post, error) {
	query := `
		SELECT id, title, subreddit, url, created_utc, first_seen_at
		FROM posts
		ORDER BY created_utc`

	var posts []domain.Post
	err := s.db.SelectContext(ctx, &posts, query)
	return posts, err
}
