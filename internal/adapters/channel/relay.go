package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/okian/dons/internal/domain/report"
	"github.com/okian/dons/internal/domain/types"
)

const (
	defaultRelayTimeout = 10 * time.Second
	maxResponseBytes    = 1 << 20
)

// Relay posts the parameter set to a server-side relay endpoint. A send
// commits only on a 2xx response whose body carries a truthy "ok" flag.
type Relay struct {
	url    string
	client *http.Client
}

// RelayOption applies a configuration option to the Relay.
type RelayOption func(*Relay)

// WithRelayHTTPClient replaces the default HTTP client.
func WithRelayHTTPClient(c *http.Client) RelayOption {
	return func(r *Relay) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRelayTimeout sets the per-request timeout of the default client.
func WithRelayTimeout(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.client = &http.Client{Timeout: d}
		}
	}
}

// NewRelay creates a relay channel. An empty url disables it.
func NewRelay(url string, opts ...RelayOption) *Relay {
	r := &Relay{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: defaultRelayTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kind implements Channel.
func (r *Relay) Kind() types.ChannelKind { return types.ChannelRelay }

// Enabled implements Channel.
func (r *Relay) Enabled() bool { return r.url != "" }

type relayRequest struct {
	TemplateParams report.Params `json:"template_params"`
}

// Send implements Channel.
func (r *Relay) Send(ctx context.Context, params report.Params) (string, error) {
	if !r.Enabled() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(relayRequest{TemplateParams: params})
	if err != nil {
		return "", fmt.Errorf("relay: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("relay: build request: %w: %w", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay: %w: %w", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("relay: read response: %w: %w", ErrSendFailed, err)
	}
	text := string(raw)
	detail := relayDetail(text)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if IsCredentialRejection(resp.StatusCode, detail) {
			return detail, fmt.Errorf("relay: status %d: %w", resp.StatusCode, ErrInvalidCredential)
		}
		return detail, fmt.Errorf("relay: status %d: %w", resp.StatusCode, ErrSendFailed)
	}
	if !gjson.Valid(text) || !gjson.Get(text, "ok").Bool() {
		return detail, fmt.Errorf("relay: %w: %w", ErrSendFailed, ErrNotAcknowledged)
	}
	return detail, nil
}

// relayDetail extracts the most useful diagnostic text from a relay reply.
func relayDetail(body string) string {
	if !gjson.Valid(body) {
		return strings.TrimSpace(body)
	}
	if e := gjson.Get(body, "error"); e.Exists() {
		return e.String()
	}
	if d := gjson.Get(body, "data"); d.Exists() {
		return d.String()
	}
	return strings.TrimSpace(body)
}
