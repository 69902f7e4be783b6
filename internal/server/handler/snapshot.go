package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/scan"
)

// SnapshotHandler lists and serves archived scan reports.
type SnapshotHandler struct {
	blobs  domain.BlobReader
	logger *slog.Logger
	now    func() time.Time
}

// NewSnapshotHandler creates a SnapshotHandler. A nil reader disables it.
func NewSnapshotHandler(blobs domain.BlobReader, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{blobs: blobs, logger: logger, now: time.Now}
}

type snapshotJSON struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// List returns the snapshots of one UTC day, newest first. The day defaults
// to today.
// GET /api/snapshots?date=2026-02-01
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot storage not configured")
		return
	}
	day := h.now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}

	infos, err := h.blobs.List(r.Context(), scan.SnapshotPrefix(day))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list snapshots failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	out := make([]snapshotJSON, 0, len(infos))
	for _, info := range infos {
		base := info.Path[strings.LastIndex(info.Path, "/")+1:]
		out = append(out, snapshotJSON{
			ID:           strings.TrimSuffix(base, ".json"),
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":      day.Format(time.DateOnly),
		"snapshots": out,
	})
}

// Get streams one snapshot.
// GET /api/snapshots/{date}/{id}
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot storage not configured")
		return
	}
	day, err := time.Parse(time.DateOnly, r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	id := r.PathValue("id")
	if id == "" || strings.ContainsAny(id, "/.") {
		writeError(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}

	body, err := h.blobs.Get(r.Context(), scan.SnapshotPath(id, day))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get snapshot failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = io.Copy(w, body)
}
