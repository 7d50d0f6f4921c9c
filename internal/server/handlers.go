package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gitcontest/xbridge/internal/models"
)

// StatusResponse represents the reconciliation state snapshot.
type StatusResponse struct {
	Issues       map[string]int `json:"issues"`
	OpenPayments int            `json:"open_payments"`
	UptimeSecs   int64          `json:"uptime_secs"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth returns a simple liveness response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns issue counts per status and the open payment count.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := s.issues.CountByStatus(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count issues")
		writeError(w, http.StatusInternalServerError, "failed to count issues")
		return
	}

	openPayments, err := s.payments.CountOpen(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count payments")
		writeError(w, http.StatusInternalServerError, "failed to count payments")
		return
	}

	resp := StatusResponse{
		Issues:       make(map[string]int, len(counts)),
		OpenPayments: openPayments,
		UptimeSecs:   int64(time.Since(s.started).Seconds()),
	}
	// Every known status appears in the response, zero or not, so
	// dashboards get a stable shape.
	for _, st := range models.AllIssueStatuses() {
		resp.Issues[string(st)] = counts[st]
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
