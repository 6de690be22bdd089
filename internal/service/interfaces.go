package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"reddit_tracker/internal/domain"
)

type PostStore interface {
	Insert(ctx context.Context, post *domain.Post) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListAll(ctx context.Context) ([]domain.Post, error)
}

type CommentStore interface {
	Insert(ctx context.Context, comment *domain.Comment) (bool, error)
	UpdateReplyStatus(ctx context.Context, commentID, status string) error
	NewSince(ctx context.Context, since time.Time) ([]domain.CommentDetail, error)
	ListAll(ctx context.Context) ([]domain.Comment, error)
}

type ScrapeLog interface {
	Begin(ctx context.Context) (int64, error)
	End(ctx context.Context, runID int64, completion domain.RunCompletion) error
	MarkNotified(ctx context.Context, runID int64) error
	LastSuccessful(ctx context.Context) (*domain.ScrapeRun, error)
}

type Strategy interface {
	Name() string
	Acquire(ctx context.Context) (domain.AcquireResult, error)
}

type Publisher interface {
	PublishNewComment(ctx context.Context, detail *domain.CommentDetail) error
	Close() error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
