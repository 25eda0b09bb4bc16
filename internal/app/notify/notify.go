// Package notify decides which recipients an assessment goes to, paces the
// deliveries and remembers the aggregated status per assessment.
package notify

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/dons/internal/adapters/channel"
	"github.com/okian/dons/internal/domain/latch"
	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/report"
	"github.com/okian/dons/internal/domain/routing"
	"github.com/okian/dons/internal/domain/types"
	"github.com/okian/dons/pkg/logger"
	"github.com/okian/dons/pkg/metrics"
)

// MinPacing is the smallest delay allowed between the coordinator and the
// participant legs. The provider accepts roughly one request per second.
const MinPacing = 1200 * time.Millisecond

const defaultCacheSize = 10_000

// Deliverer runs one delivery through the channel chain.
type Deliverer interface {
	Deliver(ctx context.Context, params report.Params) channel.Result
}

// Status is the aggregated per-leg result of one dispatch. A Status is never
// modified after it has been returned.
type Status struct {
	Coordinator model.DeliveryAttempt `json:"coordinator"`
	Participant model.DeliveryAttempt `json:"participant"`
}

// Orchestrator sequences delivery legs for assessments.
type Orchestrator struct {
	routes       *routing.Table
	chain        Deliverer
	pacing       time.Duration
	emailEnabled bool
	senderLabel  string
	replyTo      string
	cacheSize    int
	logger       logger.Logger
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error

	latch *latch.Cache[*Status]
	group singleflight.Group
}

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithPacing sets the delay between legs. Values below MinPacing are raised
// to MinPacing.
func WithPacing(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pacing = max(d, MinPacing)
	}
}

// WithEmailEnabled turns delivery on or off. When off every leg is skipped.
func WithEmailEnabled(enabled bool) Option {
	return func(o *Orchestrator) {
		o.emailEnabled = enabled
	}
}

// WithSenderLabel sets the label used as the sender name.
func WithSenderLabel(label string) Option {
	return func(o *Orchestrator) {
		o.senderLabel = label
	}
}

// WithReplyToFallback sets the reply address used when the participant has
// no email.
func WithReplyToFallback(addr string) Option {
	return func(o *Orchestrator) {
		o.replyTo = addr
	}
}

// WithCacheSize bounds the number of remembered dispatches.
func WithCacheSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the time source used for attempt timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an orchestrator. The routing table is read-only from here on.
func New(routes *routing.Table, chain Deliverer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		routes:       routes,
		chain:        chain,
		pacing:       MinPacing,
		emailEnabled: true,
		cacheSize:    defaultCacheSize,
		now:          time.Now,
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("notify")
	}
	o.latch = latch.New[*Status](latch.WithMaxSize(o.cacheSize))
	return o
}

// Dispatch delivers a to its recipients once. Later calls for the same
// assessment id, including concurrent ones, return the same *Status without
// touching any channel.
func (o *Orchestrator) Dispatch(ctx context.Context, a model.Assessment) *Status {
	if st, ok := o.latch.Load(ctx, a.ID); ok {
		o.logger.Debug(ctx, "dispatch already done", logger.String("assessment", a.ID))
		return st
	}

	v, _, _ := o.group.Do(a.ID, func() (any, error) {
		if st, ok := o.latch.Load(ctx, a.ID); ok {
			return st, nil
		}
		st := o.dispatch(ctx, a)
		st, _ = o.latch.LoadOrStore(ctx, a.ID, st)
		metrics.UpdateDispatchCacheSize(o.latch.Size())
		return st, nil
	})
	return v.(*Status)
}

// Cached returns the remembered status for an assessment id.
func (o *Orchestrator) Cached(ctx context.Context, id string) (*Status, bool) {
	return o.latch.Load(ctx, id)
}

// CacheSize returns the number of remembered dispatches.
func (o *Orchestrator) CacheSize() int64 {
	return o.latch.Size()
}

func (o *Orchestrator) dispatch(ctx context.Context, a model.Assessment) *Status {
	p := a.Participant
	coordAddr, routed := o.routes.Coordinator(p.Organization)

	st := &Status{
		Coordinator: model.DeliveryAttempt{Role: types.RoleCoordinator, Address: coordAddr},
		Participant: model.DeliveryAttempt{Role: types.RoleParticipant, Address: p.Email},
	}

	if !o.emailEnabled {
		st.Coordinator = o.skip(st.Coordinator)
		st.Participant = o.skip(st.Participant)
		o.record(ctx, a.ID, st)
		return st
	}

	if routed {
		opts := report.ForCoordinator(p, coordAddr, o.senderLabel)
		opts.ReplyTo = o.replyTo
		st.Coordinator = o.leg(ctx, st.Coordinator, report.Build(p, a.Ranking, opts, a.CreatedAt))
	} else {
		st.Coordinator = o.skip(st.Coordinator)
	}

	if !p.HasEmail() {
		st.Participant = o.skip(st.Participant)
		o.record(ctx, a.ID, st)
		return st
	}

	if routed {
		if err := o.sleep(ctx, o.pacing); err != nil {
			o.logger.Warn(ctx, "pacing interrupted, participant leg not sent",
				logger.String("assessment", a.ID), logger.Error(err))
			st.Participant.Outcome = types.OutcomeError
			st.Participant.Detail = "pacing interrupted: " + err.Error()
			st.Participant.At = o.now()
			o.record(ctx, a.ID, st)
			return st
		}
	}
	opts := report.ForParticipant(p, p.Email, o.senderLabel)
	opts.ReplyTo = o.replyTo
	st.Participant = o.leg(ctx, st.Participant, report.Build(p, a.Ranking, opts, a.CreatedAt))

	o.record(ctx, a.ID, st)
	return st
}

func (o *Orchestrator) leg(ctx context.Context, at model.DeliveryAttempt, params report.Params) model.DeliveryAttempt {
	res := o.chain.Deliver(ctx, params)
	at.Channel = res.Channel
	at.Outcome = LegOutcome(res.Outcome)
	at.Detail = res.Detail
	at.At = o.now()
	return at
}

func (o *Orchestrator) skip(at model.DeliveryAttempt) model.DeliveryAttempt {
	at.Outcome = types.OutcomeSkipped
	at.At = o.now()
	return at
}

func (o *Orchestrator) record(ctx context.Context, id string, st *Status) {
	for _, at := range []model.DeliveryAttempt{st.Coordinator, st.Participant} {
		metrics.RecordLegOutcome(string(at.Role), at.Outcome.String())
	}
	o.logger.Info(ctx, "dispatch finished",
		logger.String("assessment", id),
		logger.String("coordinator", st.Coordinator.Outcome.String()),
		logger.String("participant", st.Participant.Outcome.String()))
}

// LegOutcome maps a chain outcome onto the closed set of leg outcomes.
func LegOutcome(o types.Outcome) types.Outcome {
	switch o {
	case types.OutcomeSuccess, types.OutcomeNotConfigured, types.OutcomeInvalidCredential:
		return o
	default:
		return types.OutcomeError
	}
}

var _ Deliverer = (*channel.Chain)(nil)

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
