package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	service "github.com/okian/dons/internal/app"
	"github.com/okian/dons/pkg/logger"
)

// relayReply is the envelope the relay channel expects back.
type relayReply struct {
	OK    bool   `json:"ok"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// RelayHandler forwards template parameters to the direct provider so that
// remote callers never hold provider credentials.
type RelayHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRelayHandler creates a new relay handler.
func NewRelayHandler(deps Dependencies, log logger.Logger) *RelayHandler {
	return &RelayHandler{deps: deps, logger: log}
}

// HandleSend handles POST /relay/send. The body is either
// {"template_params": {...}} or the flat parameter object.
func (h *RelayHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, relayReply{Error: "Method not allowed"})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, relayReply{Error: err.Error()})
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		writeJSON(w, http.StatusBadRequest, relayReply{Error: "body must be a JSON object"})
		return
	}
	params := json.RawMessage(body)
	if nested := gjson.GetBytes(body, "template_params"); nested.IsObject() {
		params = json.RawMessage(nested.Raw)
	}

	resp, err := h.deps.Relay(r.Context(), params)
	switch {
	case errors.Is(err, service.ErrRelayUnavailable):
		writeJSON(w, http.StatusInternalServerError, relayReply{Error: service.ErrRelayUnavailable.Error()})
		return
	case err != nil:
		h.logger.Warn(r.Context(), "relay forward failed", logger.Error(err))
		writeJSON(w, http.StatusBadGateway, relayReply{Error: err.Error()})
		return
	}
	if resp.Status < 200 || resp.Status > 299 {
		h.logger.Debug(r.Context(), "provider rejected relayed message",
			logger.Int("status", resp.Status), logger.String("body", resp.Body))
		writeJSON(w, resp.Status, relayReply{Error: resp.Body})
		return
	}
	writeJSON(w, http.StatusOK, relayReply{OK: true, Data: resp.Body})
}
