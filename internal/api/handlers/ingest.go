package handlers

import (
	"context"
	"net/http"
	"strings"
)

// FileIngester loads a dataset file into the article store.
type FileIngester interface {
	IngestFile(ctx context.Context, path string) (int, error)
}

// FeedRefresher pulls configured feeds into the article store.
type FeedRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

type IngestHandler struct {
	ingest      FileIngester
	feeds       FeedRefresher
	defaultPath string
}

func NewIngestHandler(ingest FileIngester, feeds FeedRefresher, defaultPath string) *IngestHandler {
	return &IngestHandler{ingest: ingest, feeds: feeds, defaultPath: defaultPath}
}

type ingestRequest struct {
	Path string `json:"path"`
}

type ingestResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

// Ingest handles POST /ingest. An omitted path uses the configured dataset.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		path = h.defaultPath
	}
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	n, err := h.ingest.IngestFile(r.Context(), path)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{OK: true, Count: n})
}

// RefreshFeeds handles POST /feeds/refresh.
func (h *IngestHandler) RefreshFeeds(w http.ResponseWriter, r *http.Request) {
	if h.feeds == nil {
		writeError(w, http.StatusNotFound, "feeds are not configured")
		return
	}
	n, err := h.feeds.Refresh(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{OK: true, Count: n})
}
