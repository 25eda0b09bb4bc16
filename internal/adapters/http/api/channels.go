package api

import "net/http"

// ChannelsHandler reports delivery channel configuration.
type ChannelsHandler struct {
	deps Dependencies
}

// NewChannelsHandler creates a new channels handler.
func NewChannelsHandler(deps Dependencies) *ChannelsHandler {
	return &ChannelsHandler{deps: deps}
}

// HandleHealth handles GET /channels/health requests.
func (h *ChannelsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind("api.channels_health", ErrMethod))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ChannelHealth())
}
