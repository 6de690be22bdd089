//go:build integration

package postgres

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"reddit_tracker/internal/domain"
	"reddit_tracker/internal/service"
	"reddit_tracker/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_tracker.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM comments")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM posts")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM scrape_log")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertPost(id string) {
	store := NewPostStore(s.db)
	_, err := store.Insert(s.ctx, &domain.Post{
		ID:         id,
		Title:      "Post " + id,
		Subreddit:  "jewelry",
		URL:        "https://www.reddit.com/r/jewelry/comments/" + id + "/",
		CreatedUTC: 1700000000,
	})
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) TestPostStore_InsertIsIdempotent() {
	store := NewPostStore(s.db)

	post := &domain.Post{
		ID:         "t3_abc",
		Title:      "Original Title",
		Subreddit:  "jewelry",
		URL:        "https://www.reddit.com/r/jewelry/comments/abc/",
		CreatedUTC: 1700000000,
	}

	isNew, err := store.Insert(s.ctx, post)
	s.NoError(err)
	s.True(isNew)

	post.Title = "Changed Title"
	isNew, err = store.Insert(s.ctx, post)
	s.NoError(err)
	s.False(isNew)

	var title string
	err = s.db.GetContext(s.ctx, &title, "SELECT title FROM posts WHERE id = $1", "t3_abc")
	s.NoError(err)
	s.Equal("Original Title", title, "re-insertion must not mutate the existing row")
}

func (s *PostgresIntegrationSuite) TestPostStore_ListAllOrdered() {
	store := NewPostStore(s.db)

	for i, id := range []string{"t3_b", "t3_a", "t3_c"} {
		_, err := store.Insert(s.ctx, &domain.Post{
			ID:         id,
			Title:      "Post",
			URL:        "https://example.com",
			CreatedUTC: float64(1700000000 + (2-i)*100),
		})
		s.Require().NoError(err)
	}

	posts, err := store.ListAll(s.ctx)
	s.NoError(err)
	s.Require().Len(posts, 3)
	s.Equal("t3_c", posts[0].ID)
	s.Equal("t3_b", posts[2].ID)
}

func (s *PostgresIntegrationSuite) TestCommentStore_InsertAppliesDefaults() {
	s.insertPost("t3_abc")
	store := NewCommentStore(s.db)

	comment := &domain.Comment{
		ID:         "t1_x",
		PostID:     "t3_abc",
		Author:     "alice",
		Body:       "nice ring",
		CreatedUTC: 1700000100,
		ParentID:   utils.Ptr("t3_abc"),
		Score:      5,
	}

	isNew, err := store.Insert(s.ctx, comment)
	s.NoError(err)
	s.True(isNew)

	var got domain.Comment
	err = s.db.GetContext(s.ctx, &got,
		"SELECT id, post_id, author, body, created_utc, parent_id, score, sentiment, reply_status, first_seen_at FROM comments WHERE id = $1",
		"t1_x",
	)
	s.NoError(err)
	s.Equal(domain.SentimentNeutral, got.Sentiment)
	s.Equal(domain.ReplyStatusNeedsReply, got.ReplyStatus)
	s.False(got.FirstSeenAt.IsZero())
}

func (s *PostgresIntegrationSuite) TestCommentStore_ReinsertPreservesWorkflowState() {
	s.insertPost("t3_abc")
	store := NewCommentStore(s.db)

	comment := &domain.Comment{ID: "t1_x", PostID: "t3_abc", Author: "alice", Body: "hi"}
	_, err := store.Insert(s.ctx, comment)
	s.Require().NoError(err)

	s.NoError(store.UpdateSentiment(s.ctx, "t1_x", domain.SentimentPositive))
	s.NoError(store.UpdateReplyStatus(s.ctx, "t1_x", domain.ReplyStatusReplied))

	isNew, err := store.Insert(s.ctx, comment)
	s.NoError(err)
	s.False(isNew)

	var got domain.Comment
	err = s.db.GetContext(s.ctx, &got,
		"SELECT id, post_id, author, body, created_utc, parent_id, score, sentiment, reply_status, first_seen_at FROM comments WHERE id = $1",
		"t1_x",
	)
	s.NoError(err)
	s.Equal(domain.SentimentPositive, got.Sentiment)
	s.Equal(domain.ReplyStatusReplied, got.ReplyStatus)
}

func (s *PostgresIntegrationSuite) TestCommentStore_UnknownPost() {
	store := NewCommentStore(s.db)

	_, err := store.Insert(s.ctx, &domain.Comment{
		ID:     "t1_orphan",
		PostID: "t3_never_inserted",
		Author: "bob",
	})

	s.Error(err)
	s.ErrorIs(err, domain.ErrUnknownPost)
}

func (s *PostgresIntegrationSuite) TestCommentStore_NewSince() {
	s.insertPost("t3_abc")
	store := NewCommentStore(s.db)

	before := time.Now().UTC().Add(-time.Second)

	for _, id := range []string{"t1_a", "t1_b"} {
		_, err := store.Insert(s.ctx, &domain.Comment{
			ID: id, PostID: "t3_abc", Author: "alice", Body: "hi", CreatedUTC: 1700000100,
		})
		s.Require().NoError(err)
	}

	details, err := store.NewSince(s.ctx, before)
	s.NoError(err)
	s.Len(details, 2)
	s.Equal("Post t3_abc", details[0].PostTitle)
	s.NotEmpty(details[0].PostURL)

	details, err = store.NewSince(s.ctx, time.Now().UTC().Add(time.Hour))
	s.NoError(err)
	s.Empty(details)
}

func (s *PostgresIntegrationSuite) TestCommentStore_WithoutSentiment() {
	s.insertPost("t3_abc")
	store := NewCommentStore(s.db)

	for _, id := range []string{"t1_a", "t1_b", "t1_c"} {
		_, err := store.Insert(s.ctx, &domain.Comment{ID: id, PostID: "t3_abc", Author: "x", Body: "b"})
		s.Require().NoError(err)
	}
	s.NoError(store.UpdateSentiment(s.ctx, "t1_b", domain.SentimentNegative))

	pending, err := store.WithoutSentiment(s.ctx, 10)
	s.NoError(err)
	s.Len(pending, 2)
	for _, c := range pending {
		s.NotEqual("t1_b", c.ID)
	}
}

func (s *PostgresIntegrationSuite) TestScrapeLog_Lifecycle() {
	store := NewScrapeLogStore(s.db)

	runID, err := store.Begin(s.ctx)
	s.NoError(err)
	s.Greater(runID, int64(0))

	last, err := store.LastSuccessful(s.ctx)
	s.NoError(err)
	s.Nil(last, "a running record is not a successful one")

	err = store.End(s.ctx, runID, domain.RunCompletion{
		Status:      domain.RunStatusSuccess,
		PostsFound:  4,
		NewComments: 11,
	})
	s.NoError(err)

	last, err = store.LastSuccessful(s.ctx)
	s.NoError(err)
	s.Require().NotNil(last)
	s.Equal(runID, last.ID)
	s.Equal(4, last.PostsFound)
	s.Equal(11, last.NewCommentsFound)
	s.Require().NotNil(last.CompletedAt)
	s.False(last.Notified)

	s.NoError(store.MarkNotified(s.ctx, runID))

	last, err = store.LastSuccessful(s.ctx)
	s.NoError(err)
	s.Require().NotNil(last)
	s.True(last.Notified)
}

func (s *PostgresIntegrationSuite) TestScrapeLog_ErrorRun() {
	store := NewScrapeLogStore(s.db)

	runID, err := store.Begin(s.ctx)
	s.Require().NoError(err)

	err = store.End(s.ctx, runID, domain.RunCompletion{
		Status:       domain.RunStatusError,
		ErrorMessage: utils.Ptr("fetch submitted listing: blocked by endpoint"),
	})
	s.NoError(err)

	last, err := store.LastSuccessful(s.ctx)
	s.NoError(err)
	s.Nil(last)

	runs, err := store.Recent(s.ctx, 10)
	s.NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(domain.RunStatusError, runs[0].Status)
	s.Require().NotNil(runs[0].ErrorMessage)
	s.Contains(*runs[0].ErrorMessage, "blocked by endpoint")
}

func (s *PostgresIntegrationSuite) TestScrapeLog_RecentOrder() {
	store := NewScrapeLogStore(s.db)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := store.Begin(s.ctx)
		s.Require().NoError(err)
		ids = append(ids, id)
		time.Sleep(10 * time.Millisecond)
	}

	runs, err := store.Recent(s.ctx, 2)
	s.NoError(err)
	s.Require().Len(runs, 2)
	s.Equal(ids[2], runs[0].ID)
	s.Equal(ids[1], runs[1].ID)
}

func (s *PostgresIntegrationSuite) TestPostStore_Exists() {
	store := NewPostStore(s.db)
	s.insertPost("t3_here")

	exists, err := store.Exists(s.ctx, "t3_here")
	s.NoError(err)
	s.True(exists)

	exists, err = store.Exists(s.ctx, "t3_nowhere")
	s.NoError(err)
	s.False(exists)
}

func (s *PostgresIntegrationSuite) TestPostStore_ExistsSeesTransactionInserts() {
	tm := NewTransactionManager(s.db)
	store := NewPostStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := store.Insert(ctx, &domain.Post{ID: "t3_uncommitted", Title: "T", URL: "u"}); err != nil {
			return err
		}
		exists, err := store.Exists(ctx, "t3_uncommitted")
		if err != nil {
			return err
		}
		s.True(exists)
		return nil
	})
	s.NoError(err)
}

func (s *PostgresIntegrationSuite) TestMergeService_OrphanCommentDoesNotAbortBatch() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	posts := NewPostStore(s.db)
	comments := NewCommentStore(s.db)
	scrapeLog := NewScrapeLogStore(s.db)
	svc := service.NewMergeService(posts, comments, scrapeLog, NewTransactionManager(s.db), logger)

	s.insertPost("t3_existing")

	batch := domain.SyncBatch{
		BatchID: "it-batch",
		Posts: []domain.Post{
			{ID: "t3_new", Title: "New Post", URL: "https://example.com/new", CreatedUTC: 1700000200},
		},
		Comments: []domain.Comment{
			// Orphan first: with a single transaction, an errored insert
			// here would have poisoned everything after it.
			{ID: "t1_orphan", PostID: "t3_nowhere", Author: "a", Body: "lost"},
			{ID: "t1_on_new", PostID: "t3_new", Author: "b", Body: "hi"},
			{ID: "t1_on_existing", PostID: "t3_existing", Author: "c", Body: "hello", ReplyStatus: domain.ReplyStatusReplied},
		},
	}

	res, err := svc.Merge(s.ctx, batch)
	s.NoError(err)
	s.Equal(1, res.PostsSynced)
	s.Equal(2, res.NewComments)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM comments WHERE id = $1", "t1_orphan")
	s.NoError(err)
	s.Equal(0, count)

	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM comments WHERE id IN ($1, $2)", "t1_on_new", "t1_on_existing")
	s.NoError(err)
	s.Equal(2, count)

	var status string
	err = s.db.GetContext(s.ctx, &status, "SELECT reply_status FROM comments WHERE id = $1", "t1_on_existing")
	s.NoError(err)
	s.Equal(domain.ReplyStatusReplied, status)

	runs, err := scrapeLog.Recent(s.ctx, 10)
	s.NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(domain.RunStatusSuccess, runs[0].Status)
	s.Equal(2, runs[0].NewCommentsFound)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	posts := NewPostStore(s.db)
	comments := NewCommentStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := posts.Insert(ctx, &domain.Post{ID: "t3_tx", Title: "Tx", URL: "u"}); err != nil {
			return err
		}
		_, err := comments.Insert(ctx, &domain.Comment{ID: "t1_tx", PostID: "t3_tx", Author: "a"})
		return err
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM comments WHERE id = $1", "t1_tx")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	posts := NewPostStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := posts.Insert(ctx, &domain.Post{ID: "t3_rollback", Title: "Tx", URL: "u"}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM posts WHERE id = $1", "t3_rollback")
	s.NoError(err)
	s.Equal(0, count)
}
