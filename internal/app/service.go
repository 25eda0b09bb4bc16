// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the operator CLI.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dons/internal/adapters/channel"
	"github.com/okian/dons/internal/adapters/repository"
	"github.com/okian/dons/internal/app/notify"
	"github.com/okian/dons/internal/app/resend"
	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/domain/routing"
	"github.com/okian/dons/internal/domain/scoring"
	"github.com/okian/dons/pkg/logger"
	"github.com/okian/dons/pkg/metrics"
)

const defaultInsightsLimit = 100

// Submission is one completed questionnaire as received from a caller.
type Submission struct {
	// SubmissionID makes creation idempotent. A random id is assigned when
	// empty.
	SubmissionID string
	Participant  model.Participant
	Answers      questionnaire.Answers
}

// SubmitResult is what a caller gets back for a submission.
type SubmitResult struct {
	ID        string          `json:"id"`
	Duplicate bool            `json:"duplicate"`
	Ranking   scoring.Ranking `json:"ranking"`
	Delivery  *notify.Status  `json:"delivery"`
}

// Service implements the API dependencies for the assessment system.
type Service struct {
	mu sync.RWMutex

	// Core components
	bank         *questionnaire.Bank
	engine       *scoring.Engine
	store        repository.Store
	channels     []channel.Channel
	provider     *channel.Provider
	chain        *channel.Chain
	orchestrator *notify.Orchestrator
	resender     *resend.Resender
	routes       *routing.Table

	// Configuration
	requireComplete  bool
	emailEnabled     bool
	pacing           time.Duration
	dispatchCache    int
	senderLabel      string
	replyTo          string
	maxInsightsLimit int

	// State
	started   bool
	startedAt time.Time
	now       func() time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBank replaces the embedded question bank.
func WithBank(b *questionnaire.Bank) Option {
	return func(s *Service) {
		if b != nil {
			s.bank = b
		}
	}
}

// WithStore sets the persistence gateway. Defaults to an in-memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithChannels sets the delivery channels in priority order.
func WithChannels(chs ...channel.Channel) Option {
	return func(s *Service) {
		s.channels = chs
		s.provider = nil
		for _, ch := range chs {
			if p, ok := ch.(*channel.Provider); ok {
				s.provider = p
			}
		}
	}
}

// WithRoutes sets the organization -> coordinator table.
func WithRoutes(t *routing.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.routes = t
		}
	}
}

// WithRequireComplete rejects submissions that leave items unanswered.
func WithRequireComplete(v bool) Option {
	return func(s *Service) {
		s.requireComplete = v
	}
}

// WithEmailEnabled switches delivery on or off.
func WithEmailEnabled(v bool) Option {
	return func(s *Service) {
		s.emailEnabled = v
	}
}

// WithPacing sets the delay between delivery legs.
func WithPacing(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pacing = d
		}
	}
}

// WithDispatchCacheSize bounds the dispatch latch.
func WithDispatchCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dispatchCache = n
		}
	}
}

// WithSenderLabel sets the sender label used in outgoing messages.
func WithSenderLabel(label string) Option {
	return func(s *Service) {
		s.senderLabel = label
	}
}

// WithReplyToFallback sets the reply address for participants without email.
func WithReplyToFallback(addr string) Option {
	return func(s *Service) {
		s.replyTo = addr
	}
}

// WithMaxInsightsLimit caps the number of records aggregated by Insights.
func WithMaxInsightsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxInsightsLimit = n
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		emailEnabled:     true,
		pacing:           notify.MinPacing,
		maxInsightsLimit: 1000,
		now:              time.Now,
		logger:           nil, // resolved in Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting assessment service...")

	if s.bank == nil {
		s.bank = questionnaire.Default()
	}
	s.engine = scoring.NewEngine(scoring.WithCategories(s.bank.Categories()))

	if s.store == nil {
		st, err := repository.NewMemoryStore()
		if err != nil {
			return fmt.Errorf("create memory store: %w", err)
		}
		s.store = st
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.routes == nil {
		s.routes = routing.NewTable(nil)
	}

	s.chain = channel.NewChain(s.channels, channel.WithChainLogger(s.logger.Named("channel")))
	s.orchestrator = notify.New(s.routes, s.chain,
		notify.WithEmailEnabled(s.emailEnabled),
		notify.WithPacing(s.pacing),
		notify.WithCacheSize(s.dispatchCache),
		notify.WithSenderLabel(s.senderLabel),
		notify.WithReplyToFallback(s.replyTo),
		notify.WithLogger(s.logger.Named("notify")),
	)
	s.resender = resend.New(s.store, s.chain,
		resend.WithSenderLabel(s.senderLabel),
		resend.WithReplyToFallback(s.replyTo),
		resend.WithLogger(s.logger.Named("resend")),
	)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "assessment service started",
		logger.Int("categories", len(s.bank.Categories())),
		logger.Int("routedOrganizations", s.routes.Len()),
		logger.Any("channels", s.chain.Enabled()),
		logger.Bool("emailEnabled", s.emailEnabled),
	)
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping assessment service...")
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "close store", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "assessment service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Submit validates and scores a submission, persists it, and then dispatches
// the notifications. The record is written before any delivery is tried, so
// delivery failures never lose it. A repeated SubmissionID resolves to the
// stored record and its cached delivery status.
func (s *Service) Submit(ctx context.Context, sub Submission) (SubmitResult, error) {
	if err := s.ready(); err != nil {
		return SubmitResult{}, err
	}

	sub.SubmissionID = strings.TrimSpace(sub.SubmissionID)
	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}
	sub.Participant.Name = strings.TrimSpace(sub.Participant.Name)
	sub.Participant.Organization = strings.TrimSpace(sub.Participant.Organization)
	if sub.Participant.Name == "" || sub.Participant.Organization == "" {
		metrics.RecordSubmissionRejected()
		return SubmitResult{}, fmt.Errorf("%w: name and organization are required", ErrInvalidSubmission)
	}
	if err := s.bank.Validate(sub.Answers, s.requireComplete); err != nil {
		metrics.RecordSubmissionRejected()
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}

	start := time.Now()
	ranking := s.engine.Score(sub.Answers)
	metrics.RecordScoringLatency(metrics.Milliseconds(time.Since(start)))

	a := model.Assessment{
		SubmissionID: sub.SubmissionID,
		Participant:  sub.Participant,
		Answers:      sub.Answers,
		Ranking:      ranking,
		CreatedAt:    s.now().UTC(),
	}
	id, created, err := s.store.Create(ctx, a)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "create")
		return SubmitResult{}, fmt.Errorf("persist assessment: %w", err)
	}

	stored, err := s.store.GetByID(ctx, id)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "get")
		return SubmitResult{}, fmt.Errorf("reload assessment %s: %w", id, err)
	}
	if created {
		metrics.RecordSubmission()
		metrics.IncStoredAssessments()
	} else {
		metrics.RecordSubmissionDuplicate()
		s.logger.Info(ctx, "duplicate submission resolved",
			logger.String("submission", sub.SubmissionID),
			logger.String("assessment", id))
	}

	// delivery outlives the caller; the record is already committed
	status := s.orchestrator.Dispatch(context.WithoutCancel(ctx), stored)

	return SubmitResult{
		ID:        id,
		Duplicate: !created,
		Ranking:   stored.Ranking,
		Delivery:  status,
	}, nil
}

// Lookup returns a stored assessment.
func (s *Service) Lookup(ctx context.Context, id string) (model.Assessment, error) {
	if err := s.ready(); err != nil {
		return model.Assessment{}, err
	}
	return s.store.GetByID(ctx, strings.TrimSpace(id))
}

// DeliveryStatus returns the cached dispatch status of an assessment, if any.
func (s *Service) DeliveryStatus(ctx context.Context, id string) (*notify.Status, bool) {
	if err := s.ready(); err != nil {
		return nil, false
	}
	return s.orchestrator.Cached(ctx, id)
}

// Resend re-delivers a stored assessment.
func (s *Service) Resend(ctx context.Context, id, to string) (resend.Result, error) {
	if err := s.ready(); err != nil {
		return resend.Result{}, err
	}
	return s.resender.Resend(ctx, id, to), nil
}

// Insights aggregates the latest limit assessments. A non-positive limit
// uses the default; limits above the configured maximum are rejected.
func (s *Service) Insights(ctx context.Context, limit int) ([]scoring.CategoryInsight, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = min(defaultInsightsLimit, s.maxInsightsLimit)
	}
	if limit > s.maxInsightsLimit {
		return nil, 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidLimit, limit, s.maxInsightsLimit)
	}
	records, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}
	rankings := make([]scoring.Ranking, len(records))
	for i, r := range records {
		rankings[i] = r.Ranking
	}
	return scoring.Aggregate(rankings), len(records), nil
}

// ChannelHealth reports which channels are enabled and which provider
// settings are present. It never exposes secret values.
type ChannelHealth struct {
	Enabled       []string `json:"enabled"`
	Relay         bool     `json:"relay"`
	Provider      bool     `json:"provider"`
	Simulation    bool     `json:"simulation"`
	ServiceID     string   `json:"service_id"`
	TemplateID    string   `json:"template_id"`
	PublicKey     string   `json:"public_key"`
	PrivateKey    string   `json:"private_key"`
	Organizations []string `json:"organizations"`
}

// ChannelHealth reports the delivery configuration.
func (s *Service) ChannelHealth() ChannelHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := ChannelHealth{Enabled: []string{}}
	for _, ch := range s.channels {
		if ch == nil || !ch.Enabled() {
			continue
		}
		h.Enabled = append(h.Enabled, ch.Kind().String())
		switch ch.(type) {
		case *channel.Relay:
			h.Relay = true
		case *channel.Provider:
			h.Provider = true
		case *channel.Simulation:
			h.Simulation = true
		}
	}
	var pc channel.ProviderConfig
	if s.provider != nil {
		pc = s.provider.Config()
	}
	h.ServiceID = yesNo(pc.ServiceID)
	h.TemplateID = yesNo(pc.TemplateID)
	h.PublicKey = yesNo(pc.PublicKey)
	h.PrivateKey = yesNo(pc.PrivateKey)
	h.Organizations = s.routes.Organizations()
	if h.Organizations == nil {
		h.Organizations = []string{}
	}
	return h
}

// Relay forwards template parameters to the direct provider on behalf of
// remote callers. It returns ErrRelayUnavailable when the provider lacks
// credentials.
func (s *Service) Relay(ctx context.Context, templateParams any) (channel.Response, error) {
	if s.provider == nil || !s.provider.Enabled() {
		return channel.Response{}, ErrRelayUnavailable
	}
	return s.provider.Forward(ctx, templateParams)
}

// GetStats returns service statistics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":               s.started,
		"email_enabled":         s.emailEnabled,
		"require_complete":      s.requireComplete,
		"pacing_ms":             s.pacing.Milliseconds(),
		"routed_organizations":  0,
		"stored_assessments":    0,
		"dispatch_cache_size":   int64(0),
		"enabled_channels":      []string{},
		"uptime_seconds":        0.0,
		"questionnaire_items":   0,
		"questionnaire_entries": 0,
	}
	if !s.started {
		return stats
	}
	stats["routed_organizations"] = s.routes.Len()
	if n, err := s.store.Count(context.Background()); err == nil {
		stats["stored_assessments"] = n
	}
	stats["dispatch_cache_size"] = s.orchestrator.CacheSize()
	kinds := s.chain.Enabled()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	stats["enabled_channels"] = names
	stats["uptime_seconds"] = s.now().Sub(s.startedAt).Seconds()
	stats["questionnaire_items"] = s.bank.Len()
	stats["questionnaire_entries"] = len(s.bank.Categories())
	return stats
}

func yesNo(v string) string {
	if strings.TrimSpace(v) != "" {
		return "yes"
	}
	return "no"
}
