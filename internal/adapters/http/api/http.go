// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/dons/internal/adapters/channel"
	service "github.com/okian/dons/internal/app"
	"github.com/okian/dons/internal/app/notify"
	"github.com/okian/dons/internal/app/resend"
	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/scoring"
	"github.com/okian/dons/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Submit(ctx context.Context, sub service.Submission) (service.SubmitResult, error)
	Lookup(ctx context.Context, id string) (model.Assessment, error)
	DeliveryStatus(ctx context.Context, id string) (*notify.Status, bool)
	Resend(ctx context.Context, id, to string) (resend.Result, error)
	Insights(ctx context.Context, limit int) ([]scoring.CategoryInsight, int, error)
	ChannelHealth() service.ChannelHealth
	Relay(ctx context.Context, templateParams any) (channel.Response, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	assessmentsHandler *AssessmentsHandler
	insightsHandler    *InsightsHandler
	channelsHandler    *ChannelsHandler
	relayHandler       *RelayHandler
}

// Option configures the Server.
type Option func(*options)

type options struct {
	logger logger.Logger
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		assessmentsHandler: NewAssessmentsHandler(deps, o.logger),
		insightsHandler:    NewInsightsHandler(deps),
		channelsHandler:    NewChannelsHandler(deps),
		relayHandler:       NewRelayHandler(deps, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/assessments", MetricsMiddleware(s.assessmentsHandler.HandlePostAssessment, "assessments"))
	mux.HandleFunc("/assessments/{id}", MetricsMiddleware(s.assessmentsHandler.HandleGetAssessment, "assessment"))
	mux.HandleFunc("/assessments/{id}/resend", MetricsMiddleware(s.assessmentsHandler.HandleResend, "resend"))
	mux.HandleFunc("/insights", MetricsMiddleware(s.insightsHandler.HandleGetInsights, "insights"))
	mux.HandleFunc("/channels/health", MetricsMiddleware(s.channelsHandler.HandleHealth, "channels_health"))
	mux.HandleFunc("/relay/send", MetricsMiddleware(s.relayHandler.HandleSend, "relay"))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
