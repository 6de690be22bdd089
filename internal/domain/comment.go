package domain

import "time"

// Sentiment values assigned by the classification workflow. Ingestion
// never writes these; new comments start at SentimentNeutral via the
// column default.
const (
	SentimentNeutral  = "neutral"
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

// Reply-handling statuses. ReplyStatusNeedsReply is the column default
// for freshly ingested comments.
const (
	ReplyStatusNeedsReply = "needs_reply"
	ReplyStatusReplied    = "replied"
	ReplyStatusIgnored    = "ignored"
)

// DeletedAuthor is stored when the source has removed the author handle.
const DeletedAuthor = "[deleted]"

// Post is a tracked account's submission. Identity is the
// platform-assigned fullname (e.g. "t3_abc123") and is immutable.
type Post struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Subreddit   string    `db:"subreddit" json:"subreddit"`
	URL         string    `db:"url" json:"url"`
	CreatedUTC  float64   `db:"created_utc" json:"created_utc"`
	FirstSeenAt time.Time `db:"first_seen_at" json:"first_seen_at,omitzero"`
}

// Comment is a single node of a post's reply tree. Sentiment and
// ReplyStatus evolve after first observation and are not part of
// identity; re-ingesting a known comment must leave them untouched.
type Comment struct {
	ID          string    `db:"id" json:"id"`
	PostID      string    `db:"post_id" json:"post_id"`
	Author      string    `db:"author" json:"author"`
	Body        string    `db:"body" json:"body"`
	CreatedUTC  float64   `db:"created_utc" json:"created_utc"`
	ParentID    *string   `db:"parent_id" json:"parent_id,omitempty"`
	Score       int       `db:"score" json:"score"`
	Sentiment   string    `db:"sentiment" json:"sentiment,omitempty"`
	ReplyStatus string    `db:"reply_status" json:"reply_status,omitempty"`
	FirstSeenAt time.Time `db:"first_seen_at" json:"first_seen_at,omitzero"`
}

// CommentDetail is a comment joined with its owning post, the shape
// consumed by notification publishing and the dashboard collaborators.
type CommentDetail struct {
	Comment
	PostTitle string `db:"post_title" json:"post_title"`
	PostURL   string `db:"post_url" json:"post_url"`
}
