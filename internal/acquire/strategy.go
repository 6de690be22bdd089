package acquire

import (
	"context"
	"log/slog"

	"reddit_tracker/internal/config"
	"reddit_tracker/internal/domain"
)

// PostStore is the slice of the persistence layer a strategy needs:
// insert-if-absent by external ID.
type PostStore interface {
	Insert(ctx context.Context, post *domain.Post) (bool, error)
}

type CommentStore interface {
	Insert(ctx context.Context, comment *domain.Comment) (bool, error)
}

// Stores bundles the ingestion surface shared by every strategy.
type Stores struct {
	Posts    PostStore
	Comments CommentStore
}

// Strategy is one of the mutually exclusive acquisition methods. All
// strategies insert through the same dedup store and produce the same
// result shape.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context) (domain.AcquireResult, error)
}

// Select picks the strategy for a single run: mock mode when
// explicitly configured, the official API when credentials are set,
// public JSON endpoints otherwise. Callers evaluate it fresh per run
// so operators can add credentials between runs.
func Select(cfg config.RedditConfig, stores Stores, logger *slog.Logger) Strategy {
	switch {
	case cfg.MockMode:
		return NewMock(stores, logger)
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		return NewAPI(cfg, stores, logger)
	default:
		return NewPublic(cfg, stores, logger)
	}
}
