package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Triggerer wakes the scan loop.
type Triggerer interface {
	Trigger() bool
}

// ScanHandler serves scan triggering and the scan history.
type ScanHandler struct {
	trigger Triggerer
	history domain.ScanStore
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler. A nil trigger means no scan loop runs
// in this process; a nil history disables /api/scans.
func NewScanHandler(trigger Triggerer, history domain.ScanStore, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{trigger: trigger, history: history, logger: logger}
}

// Trigger requests an immediate scan without waiting for it.
// POST /api/scan
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "scan loop not running in this mode")
		return
	}
	queued := h.trigger.Trigger()
	h.logger.InfoContext(r.Context(), "scan requested", slog.Bool("queued", queued))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

type scanRunJSON struct {
	ID             string              `json:"id"`
	StartedAt      time.Time           `json:"started_at"`
	DurationMillis int64               `json:"duration_ms"`
	Counts         domain.ReportCounts `json:"counts"`
	BestCost       *float64            `json:"best_cost,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// History lists recent scans, newest first.
// GET /api/scans?limit=50
func (h *ScanHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "scan history not configured")
		return
	}
	runs, err := h.history.ListScans(r.Context(), queryLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list scans failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}
	out := make([]scanRunJSON, len(runs))
	for i, run := range runs {
		out[i] = scanRunJSON{
			ID:             run.ID,
			StartedAt:      run.StartedAt,
			DurationMillis: run.Duration.Milliseconds(),
			Counts:         run.Counts,
			BestCost:       run.BestCost,
			Error:          run.Error,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
