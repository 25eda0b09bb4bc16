package channel

import (
	"context"
	"sync"

	"github.com/okian/dons/internal/domain/report"
	"github.com/okian/dons/internal/domain/types"
	"github.com/okian/dons/pkg/logger"
)

// Simulation records payloads instead of sending them. It is refused in
// production.
type Simulation struct {
	enabled bool
	logger  logger.Logger

	mu   sync.Mutex
	sent []report.Params
}

// SimulationOption applies a configuration option to the Simulation.
type SimulationOption func(*Simulation)

// WithSimulationLogger sets a custom logger for the simulation channel.
func WithSimulationLogger(l logger.Logger) SimulationOption {
	return func(s *Simulation) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSimulation creates a simulation channel. It is enabled only when
// requested and the environment is not production.
func NewSimulation(requested, production bool, opts ...SimulationOption) *Simulation {
	s := &Simulation{enabled: requested && !production}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("simulation")
	}
	return s
}

// Kind implements Channel.
func (s *Simulation) Kind() types.ChannelKind { return types.ChannelSimulation }

// Enabled implements Channel.
func (s *Simulation) Enabled() bool { return s.enabled }

// Send implements Channel.
func (s *Simulation) Send(ctx context.Context, params report.Params) (string, error) {
	if !s.enabled {
		return "", ErrNotConfigured
	}
	s.mu.Lock()
	s.sent = append(s.sent, params)
	s.mu.Unlock()

	s.logger.Info(ctx, "simulated delivery",
		logger.String("to", params.ToEmail),
		logger.String("subject", params.Subject))
	s.logger.Debug(ctx, "simulated payload", logger.String("message", params.Message))
	return "simulated", nil
}

// Sent returns a copy of every recorded payload.
func (s *Simulation) Sent() []report.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]report.Params, len(s.sent))
	copy(out, s.sent)
	return out
}
