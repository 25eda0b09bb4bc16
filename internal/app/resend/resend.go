// Package resend re-delivers a stored assessment to its own address or to an
// override address.
package resend

import (
	"context"
	"errors"
	"strings"

	"github.com/okian/dons/internal/adapters/repository"
	"github.com/okian/dons/internal/app/notify"
	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/report"
	"github.com/okian/dons/internal/domain/types"
	"github.com/okian/dons/pkg/logger"
	"github.com/okian/dons/pkg/metrics"
)

// Finder loads stored assessments.
type Finder interface {
	GetByID(ctx context.Context, id string) (model.Assessment, error)
}

// Result is the structured outcome of a resend request.
type Result struct {
	ID      string            `json:"id"`
	Outcome types.Outcome     `json:"outcome"`
	Channel types.ChannelKind `json:"channel"`
	Address string            `json:"address,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// Resender rebuilds template parameters from stored records.
type Resender struct {
	store       Finder
	chain       notify.Deliverer
	senderLabel string
	replyTo     string
	logger      logger.Logger
}

// Option applies a configuration option to the Resender.
type Option func(*Resender)

// WithSenderLabel sets the label used as the sender name.
func WithSenderLabel(label string) Option {
	return func(r *Resender) {
		r.senderLabel = label
	}
}

// WithReplyToFallback sets the reply address used when the record has no
// email.
func WithReplyToFallback(addr string) Option {
	return func(r *Resender) {
		r.replyTo = addr
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resender) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resender.
func New(store Finder, chain notify.Deliverer, opts ...Option) *Resender {
	r := &Resender{store: store, chain: chain}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("resend")
	}
	return r
}

// Resend delivers the stored assessment id to override, or to the stored
// address when override is empty. Every failure is reported through the
// Result outcome.
func (r *Resender) Resend(ctx context.Context, id, override string) Result {
	res := r.resend(ctx, strings.TrimSpace(id), strings.TrimSpace(override))
	metrics.RecordResendOutcome(res.Outcome.String())
	r.logger.Info(ctx, "resend finished",
		logger.String("assessment", res.ID),
		logger.String("outcome", res.Outcome.String()),
		logger.String("channel", res.Channel.String()))
	return res
}

func (r *Resender) resend(ctx context.Context, id, override string) Result {
	res := Result{ID: id}

	a, err := r.store.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		res.Outcome = types.OutcomeInvalidID
		return res
	case errors.Is(err, repository.ErrNotFound):
		res.Outcome = types.OutcomeNotFound
		return res
	case err != nil:
		r.logger.Error(ctx, "load assessment for resend", logger.String("assessment", id), logger.Error(err))
		res.Outcome = types.OutcomeError
		res.Detail = err.Error()
		return res
	}

	to := a.Participant.Email
	if override != "" {
		to = repository.NormalizeEmail(override)
		if to == "" {
			res.Outcome = types.OutcomeInvalidAddress
			return res
		}
	}
	if to == "" {
		res.Outcome = types.OutcomeNoAddress
		return res
	}
	res.Address = to

	opts := report.ForParticipant(a.Participant, to, r.senderLabel)
	opts.ReplyTo = r.replyTo
	delivered := r.chain.Deliver(ctx, report.Build(a.Participant, a.Ranking, opts, a.CreatedAt))

	res.Outcome = delivered.Outcome
	res.Channel = delivered.Channel
	res.Detail = delivered.Detail
	return res
}
