package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reddit_tracker/internal/domain"
	"reddit_tracker/internal/source/reddit"
)

// maxCrawlDepth bounds reply-tree recursion. Natural trees terminate
// well before this; the ceiling only guards against adversarial
// nesting in the source payload.
const maxCrawlDepth = 50

// crawler walks a reply tree depth-first, parent before children,
// persisting each comment through the dedup store.
type crawler struct {
	comments CommentStore
	logger   *slog.Logger
}

// walk returns the count of newly inserted comments. Load-more stubs
// (kind != t1) are skipped: they are placeholders, not comments. A
// comment referencing an unknown post is logged and skipped; a store
// failure aborts the walk.
func (c *crawler) walk(ctx context.Context, children []reddit.Thing, postID string, depth int) (int, error) {
	if depth >= maxCrawlDepth {
		c.logger.Warn("reply tree exceeds depth ceiling, truncating",
			"post_id", postID,
			"depth", depth,
		)
		return 0, nil
	}

	newCount := 0
	for _, item := range children {
		if item.Kind != reddit.KindComment {
			continue
		}

		d := item.Data
		author := d.Author
		if author == "" {
			author = domain.DeletedAuthor
		}

		comment := &domain.Comment{
			ID:         d.Name,
			PostID:     postID,
			Author:     author,
			Body:       d.Body,
			CreatedUTC: d.CreatedUTC,
			Score:      d.Score,
		}
		if d.ParentID != "" {
			comment.ParentID = &d.ParentID
		}

		isNew, err := c.comments.Insert(ctx, comment)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownPost) {
				c.logger.Error("comment references unknown post, skipping",
					"comment_id", d.Name,
					"post_id", postID,
				)
				continue
			}
			return newCount, fmt.Errorf("insert comment %s: %w", d.Name, err)
		}
		if isNew {
			newCount++
		}

		if replies := d.Replies.Children(); len(replies) > 0 {
			n, err := c.walk(ctx, replies, postID, depth+1)
			newCount += n
			if err != nil {
				return newCount, err
			}
		}
	}

	return newCount, nil
}
