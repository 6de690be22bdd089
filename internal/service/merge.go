package service

import (
	"context"
	"fmt"
	"log/slog"

	"reddit_tracker/internal/domain"
)

// MergeService applies batches uploaded by a remote acquisition
// machine through the same idempotent store contract as a local run.
type MergeService struct {
	posts     PostStore
	comments  CommentStore
	log       ScrapeLog
	txManager TransactionManager
	logger    *slog.Logger
}

func NewMergeService(
	posts PostStore,
	comments CommentStore,
	log ScrapeLog,
	txManager TransactionManager,
	logger *slog.Logger,
) *MergeService {
	return &MergeService{
		posts:     posts,
		comments:  comments,
		log:       log,
		txManager: txManager,
		logger:    logger.With("component", "merge"),
	}
}

// Merge inserts all posts, then all comments, inside one transaction,
// bracketed by a single run lifecycle record. Comments carrying a
// non-default reply status get the override applied unconditionally,
// so a remote operator's triage decisions propagate even for comments
// the central store already had. A comment referencing a post absent
// from both the batch and the store is skipped, not fatal; the check
// happens before the insert because an errored statement would abort
// the whole transaction.
func (m *MergeService) Merge(ctx context.Context, batch domain.SyncBatch) (res domain.MergeResult, err error) {
	runID, err := m.log.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin scrape log: %w", err)
	}

	defer func() {
		completion := domain.RunCompletion{
			Status:      domain.RunStatusSuccess,
			PostsFound:  res.PostsSynced,
			NewComments: res.NewComments,
		}
		if err != nil {
			msg := err.Error()
			completion.Status = domain.RunStatusError
			completion.ErrorMessage = &msg
		}
		if endErr := m.log.End(context.WithoutCancel(ctx), runID, completion); endErr != nil {
			m.logger.Error("failed to finalize merge log",
				"run_id", runID,
				"error", endErr,
			)
		}
	}()

	m.logger.Info("starting merge",
		"run_id", runID,
		"batch_id", batch.BatchID,
		"posts", len(batch.Posts),
		"comments", len(batch.Comments),
	)

	err = m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		known := make(map[string]bool, len(batch.Posts))
		for i := range batch.Posts {
			if _, err := m.posts.Insert(txCtx, &batch.Posts[i]); err != nil {
				return fmt.Errorf("insert post %s: %w", batch.Posts[i].ID, err)
			}
			known[batch.Posts[i].ID] = true
			res.PostsSynced++
		}

		for i := range batch.Comments {
			c := &batch.Comments[i]

			if !known[c.PostID] {
				exists, err := m.posts.Exists(txCtx, c.PostID)
				if err != nil {
					return fmt.Errorf("check post %s: %w", c.PostID, err)
				}
				if !exists {
					m.logger.Warn("batch comment references unknown post, skipping",
						"comment_id", c.ID,
						"post_id", c.PostID,
					)
					continue
				}
				known[c.PostID] = true
			}

			isNew, err := m.comments.Insert(txCtx, c)
			if err != nil {
				return fmt.Errorf("insert comment %s: %w", c.ID, err)
			}
			if isNew {
				res.NewComments++
			}

			// Reconcile remote triage decisions onto existing rows too.
			if c.ReplyStatus != "" && c.ReplyStatus != domain.ReplyStatusNeedsReply {
				if err := m.comments.UpdateReplyStatus(txCtx, c.ID, c.ReplyStatus); err != nil {
					return fmt.Errorf("apply reply status for %s: %w", c.ID, err)
				}
			}
		}

		return nil
	})
	if err != nil {
		res = domain.MergeResult{}
		return res, fmt.Errorf("merge batch: %w", err)
	}

	m.logger.Info("merge completed",
		"run_id", runID,
		"posts_synced", res.PostsSynced,
		"new_comments", res.NewComments,
	)

	return res, nil
}
