package domain

import "time"

// Run statuses. A run is created as RunStatusRunning and transitions
// exactly once to a terminal status.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// ScrapeRun is one acquisition run's lifecycle record.
type ScrapeRun struct {
	ID               int64      `db:"id"`
	StartedAt        time.Time  `db:"started_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	PostsFound       int        `db:"posts_found"`
	NewCommentsFound int        `db:"new_comments_found"`
	Status           string     `db:"status"`
	ErrorMessage     *string    `db:"error_message"`
	Notified         bool       `db:"notified"`
}

// RunCompletion finalizes a scrape log record.
type RunCompletion struct {
	Status       string
	PostsFound   int
	NewComments  int
	ErrorMessage *string
}

// AcquireResult is the uniform outcome shape every acquisition
// strategy produces.
type AcquireResult struct {
	PostsFound  int
	NewComments int
}

// SyncBatch is the upload payload of the remote-acquisition variant.
type SyncBatch struct {
	BatchID  string    `json:"batch_id,omitempty"`
	Posts    []Post    `json:"posts"`
	Comments []Comment `json:"comments"`
}

// MergeResult summarizes applying a SyncBatch to the store.
type MergeResult struct {
	PostsSynced int `json:"posts_synced"`
	NewComments int `json:"new_comments"`
}
