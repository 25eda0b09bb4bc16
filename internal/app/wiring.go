package service

import (
	"context"
	"fmt"

	"github.com/okian/dons/internal/adapters/channel"
	"github.com/okian/dons/internal/adapters/repository"
	"github.com/okian/dons/internal/config"
	"github.com/okian/dons/internal/domain/routing"
	"github.com/okian/dons/pkg/logger"
)

// NewFromConfig builds a Service whose store, channels and routes come from
// cfg. Explicit options win over configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := New(
		WithRequireComplete(cfg.RequireComplete),
		WithEmailEnabled(cfg.EmailEnabled),
		WithPacing(cfg.PacingDelay()),
		WithDispatchCacheSize(cfg.DispatchCacheSize),
		WithSenderLabel(cfg.SenderLabel),
		WithReplyToFallback(cfg.ReplyToFallback),
		WithMaxInsightsLimit(cfg.MaxInsightsLimit),
	)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.routes == nil {
		s.routes = routing.NewTable(cfg.Routing)
	}

	if s.channels == nil {
		relay := channel.NewRelay(cfg.RelayURL, channel.WithRelayTimeout(cfg.RelayTimeout()))
		provider := channel.NewProvider(channel.ProviderConfig{
			URL:        cfg.ProviderURL,
			ServiceID:  cfg.ProviderServiceID,
			TemplateID: cfg.ProviderTemplateID,
			PublicKey:  cfg.ProviderPublicKey,
			PrivateKey: cfg.ProviderPrivateKey,
		}, channel.WithProviderTimeout(cfg.ProviderTimeout()))
		sim := channel.NewSimulation(cfg.Simulate, cfg.IsProduction(),
			channel.WithSimulationLogger(s.logger.Named("simulation")))
		WithChannels(relay, provider, sim)(s)
		if cfg.Simulate && cfg.IsProduction() {
			s.logger.Warn(ctx, "simulation requested in production, ignoring")
		}
	}

	if s.store == nil {
		codec, err := repository.NewIDCodec(cfg.IDSalt, cfg.IDMinLength)
		if err != nil {
			return nil, fmt.Errorf("build id codec: %w", err)
		}
		st, err := repository.NewSQLiteStore(ctx, cfg.DatabasePath, repository.WithIDCodec(codec))
		if err != nil {
			return nil, fmt.Errorf("open store %s: %w", cfg.DatabasePath, err)
		}
		s.store = st
		s.logger.Info(ctx, "opened assessment store", logger.String("path", cfg.DatabasePath))
	}
	return s, nil
}
