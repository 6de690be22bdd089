package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"reddit_tracker/internal/domain"
)

var (
	mockSubreddits = []string{"jewelry", "engagementrings", "Insurance", "jewelers", "diamonds"}
	mockTitles = []string{
		"Why You Need Jewelry Insurance in 2026",
		"BriteCo vs Traditional Jewelry Insurance - Our Experience",
		"PSA: Get Your Engagement Ring Appraised and Insured",
		"How to Choose the Right Jewelry Insurance",
		"We just launched updated coverage options!",
		"AMA: Ask us anything about jewelry insurance",
	}
	mockAuthors = []string{"ring_lover_22", "diamondgirl", "insurancequestion", "engaged_2026", "jewelry_collector", "sparkle_fan"}
	mockBodies = []string{
		"This is really helpful, thanks for sharing!",
		"How does the claims process work? I had a bad experience with another company.",
		"Just signed up last week. The process was super easy.",
		"Does this cover watches too or just jewelry?",
		"What's the difference between replacement value and actual value coverage?",
		"My jeweler recommended BriteCo. Glad to see you're active here!",
		"How long does an appraisal take?",
		"Is there a deductible?",
		"Can I add items to my policy later?",
		"Great info! Sharing this with my fiancée.",
	}
)

// MockStrategy generates a random, self-consistent batch entirely
// in-process. It still inserts through the dedup store so test runs
// exercise the same persistence contract as real ones.
type MockStrategy struct {
	posts    PostStore
	comments CommentStore
	logger   *slog.Logger
}

func NewMock(stores Stores, logger *slog.Logger) *MockStrategy {
	return &MockStrategy{
		posts:    stores.Posts,
		comments: stores.Comments,
		logger:   logger.With("strategy", "mock"),
	}
}

func (s *MockStrategy) Name() string {
	return "mock"
}

func (s *MockStrategy) Acquire(ctx context.Context) (domain.AcquireResult, error) {
	var res domain.AcquireResult

	base := time.Now().UTC().Unix()
	res.PostsFound = 3 + rand.IntN(4)

	for i := 0; i < res.PostsFound; i++ {
		postID := fmt.Sprintf("t3_mock_%d_%d", base, i)
		subreddit := mockSubreddits[rand.IntN(len(mockSubreddits))]

		post := &domain.Post{
			ID:        postID,
			Title:     mockTitles[rand.IntN(len(mockTitles))],
			Subreddit: subreddit,
			URL:       fmt.Sprintf("https://www.reddit.com/r/%s/comments/mock%d/mock_post/", subreddit, i),
			// 1-7 days ago
			CreatedUTC: float64(base - int64(86400+rand.IntN(518400))),
		}
		if _, err := s.posts.Insert(ctx, post); err != nil {
			return res, fmt.Errorf("insert mock post: %w", err)
		}

		for j, n := 0, rand.IntN(6); j < n; j++ {
			comment := &domain.Comment{
				ID:         fmt.Sprintf("t1_mock_%d_%d_%d", base, i, j),
				PostID:     postID,
				Author:     mockAuthors[rand.IntN(len(mockAuthors))],
				Body:       mockBodies[rand.IntN(len(mockBodies))],
				CreatedUTC: float64(base - int64(rand.IntN(86400))),
				ParentID:   &postID,
				Score:      1 + rand.IntN(50),
			}
			isNew, err := s.comments.Insert(ctx, comment)
			if err != nil {
				return res, fmt.Errorf("insert mock comment: %w", err)
			}
			if isNew {
				res.NewComments++
			}
		}
	}

	return res, nil
}
