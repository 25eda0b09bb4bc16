package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"

	"github.com/okian/dons/internal/domain/report"
	"github.com/okian/dons/internal/domain/types"
)

const (
	// DefaultProviderURL is the transactional email provider's send endpoint.
	DefaultProviderURL     = "https://api.emailjs.com/api/v1.0/email/send"
	defaultProviderTimeout = 10 * time.Second
)

// ProviderConfig holds the direct-provider settings.
type ProviderConfig struct {
	URL        string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string // optional access token
}

// Configured reports whether service, template and public key are all set.
func (c ProviderConfig) Configured() bool {
	return strings.TrimSpace(c.ServiceID) != "" &&
		strings.TrimSpace(c.TemplateID) != "" &&
		strings.TrimSpace(c.PublicKey) != ""
}

// Provider submits parameters directly to the third-party provider.
type Provider struct {
	cfg    ProviderConfig
	client *rest.Client
}

// ProviderOption applies a configuration option to the Provider.
type ProviderOption func(*Provider)

// WithProviderHTTPClient replaces the default HTTP client.
func WithProviderHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		if c != nil {
			p.client = &rest.Client{HTTPClient: c}
		}
	}
}

// WithProviderTimeout sets the per-request timeout of the default client.
func WithProviderTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.client = &rest.Client{HTTPClient: &http.Client{Timeout: d}}
		}
	}
}

// NewProvider creates a direct-provider channel.
func NewProvider(cfg ProviderConfig, opts ...ProviderOption) *Provider {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultProviderURL
	}
	p := &Provider{
		cfg:    cfg,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: defaultProviderTimeout}},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind implements Channel.
func (p *Provider) Kind() types.ChannelKind { return types.ChannelProvider }

// Enabled implements Channel.
func (p *Provider) Enabled() bool { return p.cfg.Configured() }

// Config returns the provider settings.
func (p *Provider) Config() ProviderConfig { return p.cfg }

type providerRequest struct {
	ServiceID      string `json:"service_id"`
	TemplateID     string `json:"template_id"`
	UserID         string `json:"user_id"`
	AccessToken    string `json:"accessToken,omitempty"`
	TemplateParams any    `json:"template_params"`
}

// Response is the provider's raw reply.
type Response struct {
	Status int
	Body   string
}

// Forward submits arbitrary template parameters and returns the provider's
// raw reply. A non-nil error means the request never got an HTTP answer.
func (p *Provider) Forward(ctx context.Context, templateParams any) (Response, error) {
	if !p.Enabled() {
		return Response{}, ErrNotConfigured
	}
	body, err := json.Marshal(providerRequest{
		ServiceID:      p.cfg.ServiceID,
		TemplateID:     p.cfg.TemplateID,
		UserID:         p.cfg.PublicKey,
		AccessToken:    p.cfg.PrivateKey,
		TemplateParams: templateParams,
	})
	if err != nil {
		return Response{}, fmt.Errorf("provider: marshal: %w", err)
	}

	resp, err := p.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: p.cfg.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return Response{}, fmt.Errorf("provider: %w: %w", ErrSendFailed, err)
	}
	return Response{Status: resp.StatusCode, Body: resp.Body}, nil
}

// Send implements Channel.
func (p *Provider) Send(ctx context.Context, params report.Params) (string, error) {
	resp, err := p.Forward(ctx, params)
	if err != nil {
		return "", err
	}
	detail := strings.TrimSpace(resp.Body)
	if resp.Status >= 200 && resp.Status <= 299 {
		return detail, nil
	}
	if IsCredentialRejection(resp.Status, detail) {
		return detail, fmt.Errorf("provider: status %d: %w", resp.Status, ErrInvalidCredential)
	}
	return detail, fmt.Errorf("provider: status %d: %w", resp.Status, ErrSendFailed)
}
