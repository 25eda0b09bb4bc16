package api

import (
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/dons/internal/app"
	"github.com/okian/dons/internal/domain/scoring"
)

type insightsResponse struct {
	Analyzed   int                       `json:"analyzed"`
	Categories []scoring.CategoryInsight `json:"categories"`
}

// InsightsHandler handles aggregate insights requests.
type InsightsHandler struct {
	deps Dependencies
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(deps Dependencies) *InsightsHandler {
	return &InsightsHandler{deps: deps}
}

// HandleGetInsights handles GET /insights?limit=N requests.
func (h *InsightsHandler) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_insights"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethod))
		return
	}
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	insights, analyzed, err := h.deps.Insights(r.Context(), limit)
	switch {
	case errors.Is(err, service.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if insights == nil {
		insights = []scoring.CategoryInsight{}
	}
	writeJSON(w, http.StatusOK, insightsResponse{Analyzed: analyzed, Categories: insights})
}
