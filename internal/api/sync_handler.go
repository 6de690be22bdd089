package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"reddit_tracker/internal/domain"
)

// Merger applies an uploaded batch through the idempotent store.
type Merger interface {
	Merge(ctx context.Context, batch domain.SyncBatch) (domain.MergeResult, error)
}

// SyncHandler exposes the single write surface the remote-acquisition
// variant needs. The dashboard API lives elsewhere.
type SyncHandler struct {
	merger Merger
	apiKey string
	logger *slog.Logger
}

func NewSyncHandler(merger Merger, apiKey string, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		merger: merger,
		apiKey: apiKey,
		logger: logger.With("component", "sync_api"),
	}
}

func (h *SyncHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sync/upload", h.handleUpload)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

func (h *SyncHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		h.writeError(w, http.StatusServiceUnavailable, "sync uploads not configured")
		return
	}

	key := r.Header.Get("X-Sync-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		h.writeError(w, http.StatusUnauthorized, "invalid sync key")
		return
	}

	var batch domain.SyncBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	res, err := h.merger.Merge(r.Context(), batch)
	if err != nil {
		h.logger.Error("merge failed", "batch_id", batch.BatchID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "merge failed")
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

func (h *SyncHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SyncHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *SyncHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
