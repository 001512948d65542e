package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/submission"
)

// WebhookResponse acknowledges an ingested submission.
type WebhookResponse struct {
	Status        string `json:"status"`
	ApplicationID string `json:"application_id"`
	FormType      string `json:"form_type"`
	Timestamp     string `json:"timestamp"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, string(engine.CodeInvalidPayload), err.Error(), "")
		return
	}

	sub, err := s.engine.Ingest(r.Context(), raw)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Status:        "success",
		ApplicationID: sub.ID,
		FormType:      sub.Category,
		Timestamp:     s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "kickoff",
		"status":  "running",
		"version": s.opts.Version,
		"stats":   stats,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.Stats(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": s.now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":             stats,
		"notifier_failures": s.engine.NotifierFailures(),
		"uptime_seconds":    int64(s.now().Sub(s.started).Seconds()),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter, ok := statusFilter(w, r)
	if !ok {
		return
	}
	subs, err := s.engine.List(r.Context(), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"total":       len(subs),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDecide(d submission.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.engine.Decide(r.Context(), chi.URLParam(r, "id"), d)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"submission":  out.Submission,
			"publication": out.Publication,
		})
	}
}

func (s *Server) handleBulkApprove(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.BulkApprove(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkBody(res))
}

func (s *Server) handleBulkReject(w http.ResponseWriter, r *http.Request) {
	age, ok := durationParam(w, r, "older_than", s.opts.BulkRejectAge)
	if !ok {
		return
	}
	res, err := s.engine.BulkReject(r.Context(), age)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkBody(res))
}

func bulkBody(res engine.BulkResult) map[string]any {
	return map[string]any{
		"matched":    res.Matched,
		"succeeded":  res.Succeeded,
		"failed_ids": res.FailedIDs(),
	}
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	window, ok := durationParam(w, r, "retention", s.opts.Retention)
	if !ok {
		return
	}
	n, err := s.engine.Cleanup(r.Context(), window)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n, "retention": window.String()})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Restore(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned":    res.Scanned,
		"restored":   res.Restored,
		"skipped":    res.Skipped,
		"failed_ids": res.FailedIDs(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, ok := statusFilter(w, r)
	if !ok {
		return
	}

	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if _, err := s.engine.Export(r.Context(), &buf, filter); err != nil {
		writeEngineError(w, err)
		return
	}

	name := fmt.Sprintf("applications_%s.csv", s.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// statusFilter parses ?status=. Absent means no filter.
func statusFilter(w http.ResponseWriter, r *http.Request) (*submission.Status, bool) {
	v := r.URL.Query().Get("status")
	if v == "" {
		return nil, true
	}
	st, err := submission.ParseStatus(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), "")
		return nil, false
	}
	return &st, true
}

// durationParam parses a positive Go duration query parameter.
func durationParam(w http.ResponseWriter, r *http.Request, name string, def time.Duration) (time.Duration, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("%s must be a positive duration such as 168h, got %q", name, v), "")
		return 0, false
	}
	return d, true
}
