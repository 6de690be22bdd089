package syncup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"reddit_tracker/internal/domain"
)

// Uploader pushes a locally acquired batch to the central deployment's
// sync endpoint. The source blocks cloud IPs, so acquisition runs on a
// residential machine and the results travel here.
type Uploader struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func NewUploader(baseURL, apiKey string, logger *slog.Logger) *Uploader {
	return &Uploader{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger.With("component", "syncup"),
	}
}

// Upload posts the batch and returns the central store's merge counts.
// A batch ID is assigned when the caller did not set one.
func (u *Uploader) Upload(ctx context.Context, batch domain.SyncBatch) (domain.MergeResult, error) {
	var res domain.MergeResult

	if batch.BatchID == "" {
		batch.BatchID = uuid.NewString()
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return res, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/sync/upload", bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sync-Key", u.apiKey)

	u.logger.Info("uploading batch",
		"batch_id", batch.BatchID,
		"posts", len(batch.Posts),
		"comments", len(batch.Comments),
	)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("execute upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return res, fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("decode upload response: %w", err)
	}

	u.logger.Info("batch uploaded",
		"batch_id", batch.BatchID,
		"posts_synced", res.PostsSynced,
		"new_comments", res.NewComments,
	)

	return res, nil
}
