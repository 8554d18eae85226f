package http

import (
	"net/http"

	"cassa/internal/core"
	"cassa/internal/log"
)

type chartResponse struct {
	Entries []core.ChartEntry `json:"entries"`
}

type errorResponse struct {
	Error  string           `json:"error"`
	Fields core.FieldErrors `json:"fields,omitempty"`
}

// handleChartTop5 serves the chart data as JSON. It accepts the same
// filter parameters as the dashboard, so the page and the feed always
// agree on what the chart shows.
func (s *Server) handleChartTop5(w http.ResponseWriter, r *http.Request) {
	filter, fe := parseFilter(r)
	if fe.Any() {
		s.respondJSON(w, r, http.StatusBadRequest, errorResponse{
			Error:  "invalid filter",
			Fields: fe,
		})
		return
	}

	stats, err := s.service.Statistics(r.Context(), filter)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to compute chart data", log.FieldError, err)
		s.respondJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	s.respondJSON(w, r, http.StatusOK, chartResponse{Entries: stats.Top5})
}
