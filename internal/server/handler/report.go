package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
	"github.com/alanyoungcy/crossarb/internal/report"
)

// ReportHandler serves the latest scan report from the report cache.
type ReportHandler struct {
	reports domain.ReportCache
	opts    matching.ReportOptions
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler. opts are the thresholds quoted in
// the text rendering.
func NewReportHandler(reports domain.ReportCache, opts matching.ReportOptions, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, opts: opts, logger: logger}
}

// Latest returns the latest report as JSON.
// GET /api/report
func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Text returns the latest report rendered as plain text.
// GET /api/report/text
func (h *ReportHandler) Text(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(report.Text(rep, h.opts)))
}

// Matches returns the opportunities of the latest report, optionally only
// those of one league (case-insensitive).
// GET /api/report/matches?league=NBA
func (h *ReportHandler) Matches(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}
	league := strings.TrimSpace(r.URL.Query().Get("league"))
	opps := make([]domain.OpportunitySummary, 0, len(rep.Opportunities))
	for _, o := range rep.Opportunities {
		if league == "" || strings.EqualFold(o.League, league) {
			opps = append(opps, o)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scan_id":       rep.ID,
		"started_at":    rep.StartedAt,
		"league":        league,
		"count":         len(opps),
		"opportunities": opps,
	})
}

func (h *ReportHandler) load(w http.ResponseWriter, r *http.Request) (domain.Report, bool) {
	if h.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report cache not configured")
		return domain.Report{}, false
	}
	rep, err := h.reports.GetLatest(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no scan report yet")
		return domain.Report{}, false
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load latest report failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return domain.Report{}, false
	}
	return rep, true
}
