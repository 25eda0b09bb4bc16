// Package channel implements the delivery channel chain: an ordered list of
// transmission mechanisms tried until exactly one commits.
package channel

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/okian/dons/internal/domain/report"
	"github.com/okian/dons/internal/domain/types"
	"github.com/okian/dons/pkg/logger"
	"github.com/okian/dons/pkg/metrics"
)

// Channel is one transmission mechanism.
type Channel interface {
	Kind() types.ChannelKind
	// Enabled reports whether the channel has everything it needs to be tried.
	Enabled() bool
	// Send hands params to the channel. detail carries raw provider text for
	// diagnostics.
	Send(ctx context.Context, params report.Params) (detail string, err error)
}

// Result is the outcome of one pass through the chain. Channel names the
// channel that committed and is ChannelNone whenever Committed is false.
type Result struct {
	Committed bool              `json:"committed"`
	Channel   types.ChannelKind `json:"channel"`
	Outcome   types.Outcome     `json:"outcome"`
	Detail    string            `json:"detail,omitempty"`
}

// Chain tries channels in priority order. A failure advances to the next
// channel; a success stops the chain. A single channel is never retried.
type Chain struct {
	channels []Channel
	logger   logger.Logger
}

// ChainOption applies a configuration option to the Chain.
type ChainOption func(*Chain)

// WithChainLogger sets a custom logger for the chain.
func WithChainLogger(l logger.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChain creates a chain over channels, in the order given. Nil channels
// are ignored.
func NewChain(channels []Channel, opts ...ChainOption) *Chain {
	c := &Chain{}
	for _, ch := range channels {
		if ch != nil {
			c.channels = append(c.channels, ch)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("channel")
	}
	return c
}

// Enabled returns the kinds of channels that would currently be tried.
func (c *Chain) Enabled() []types.ChannelKind {
	var kinds []types.ChannelKind
	for _, ch := range c.channels {
		if ch.Enabled() {
			kinds = append(kinds, ch.Kind())
		}
	}
	return kinds
}

// Deliver runs the chain once. It never returns an error: every failure is
// folded into the Result outcome.
func (c *Chain) Deliver(ctx context.Context, params report.Params) Result {
	start := time.Now()
	defer func() {
		metrics.RecordChainLatency(metrics.Milliseconds(time.Since(start)))
	}()

	attempted := false
	sawCredential := false
	var last Result

	for _, ch := range c.channels {
		if !ch.Enabled() {
			continue
		}
		attempted = true

		detail, err := ch.Send(ctx, params)
		if err == nil {
			metrics.RecordDeliveryAttempt(ch.Kind().String(), types.OutcomeSuccess.String())
			c.logger.Info(ctx, "delivery committed",
				logger.String("channel", ch.Kind().String()),
				logger.String("to", params.ToEmail))
			return Result{Committed: true, Channel: ch.Kind(), Outcome: types.OutcomeSuccess, Detail: detail}
		}

		outcome := types.OutcomeSendFailed
		if errors.Is(err, ErrInvalidCredential) {
			outcome = types.OutcomeInvalidCredential
			sawCredential = true
		}
		metrics.RecordDeliveryAttempt(ch.Kind().String(), outcome.String())
		c.logger.Warn(ctx, "channel failed, advancing",
			logger.String("channel", ch.Kind().String()),
			logger.String("outcome", outcome.String()),
			logger.Error(err))
		c.logger.Debug(ctx, "channel failure detail",
			logger.String("channel", ch.Kind().String()),
			logger.String("detail", detail))
		last = Result{Channel: types.ChannelNone, Outcome: outcome, Detail: detail}
	}

	if !attempted {
		return Result{Channel: types.ChannelNone, Outcome: types.OutcomeNotConfigured}
	}
	if sawCredential {
		last.Outcome = types.OutcomeInvalidCredential
	}
	return last
}

// credentialPattern matches the provider's rejection of the signing key,
// e.g. "The Public Key is invalid", "The user ID is required" or
// "invalid_public_key".
var credentialPattern = regexp.MustCompile(
	`(?i)(((public|private)[ _-]?key|user[ _-]?id|access[ _-]?token).*(invalid|required))|((invalid|required).*((public|private)[ _-]?key|user[ _-]?id|access[ _-]?token))`,
)

// IsCredentialRejection reports whether a provider response signals an
// invalid or missing credential rather than a transient failure.
func IsCredentialRejection(status int, body string) bool {
	return status == 400 && credentialPattern.MatchString(body)
}
