package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/prom"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableProviders = errors.New("no available providers")
	// ErrRejected means the channel refused the message itself; sending it
	// again will not help.
	ErrRejected = errors.New("message rejected by channel")
)

type DeliveryStatus string

const (
	StatusAccepted DeliveryStatus = "ACCEPTED"
	StatusRejected DeliveryStatus = "REJECTED"
)

// CountryCode is prefixed to the stored 10-digit mobile number.
const CountryCode = "+91"

type SendRequest struct {
	Reference string `json:"reference"`
	To        string `json:"to"`
	Text      string `json:"text"`
}

type SendResponse struct {
	ID         string         `json:"id"`
	Reference  string         `json:"reference"`
	Status     DeliveryStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	AcceptedAt time.Time      `json:"accepted_at"`
	Provider   string         `json:"-"`
}

type ProviderMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	ConsecutiveFails atomic.Int32
}

func (m *ProviderMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.ConsecutiveFails.Store(0)
}

func (m *ProviderMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
}

func (m *ProviderMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

type Provider struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *ProviderMetrics
	circuitOpenUntil atomic.Int64
}

func NewProvider(name, url string, client *fasthttp.Client) *Provider {
	return &Provider{
		name:    name,
		url:     url,
		client:  client,
		metrics: &ProviderMetrics{},
	}
}

func (p *Provider) Name() string {
	return p.name
}

// IsAvailable is false while the provider's circuit is open.
func (p *Provider) IsAvailable() bool {
	return time.Now().UnixNano() >= p.circuitOpenUntil.Load()
}

type Config struct {
	Providers               []ProviderConfig
	Token                   string
	Timeout                 time.Duration
	MaxConns                int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

type ProviderConfig struct {
	Name string
	URL  string
}

// Client sends WhatsApp messages through an ordered list of providers. The
// first available provider is tried first; transport errors and 5xx
// responses fall through to the next one.
type Client struct {
	config    Config
	providers []*Provider
}

func NewClient(config Config) (*Client, error) {
	var providers []*Provider
	for _, pc := range config.Providers {
		if pc.URL == "" {
			continue
		}
		providers = append(providers, NewProvider(pc.Name, pc.URL, &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		}))
		logger.Info("whatsapp provider initialized", "name", pc.Name, "url", pc.URL)
	}
	if len(providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}

	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	return &Client{config: config, providers: providers}, nil
}

// NewSendRequest builds the channel payload for a 10-digit mobile number.
func NewSendRequest(reference, mobile, text string) *SendRequest {
	return &SendRequest{
		Reference: reference,
		To:        CountryCode + mobile,
		Text:      text,
	}
}

func (c *Client) SendWhatsApp(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	lastErr := ErrNoAvailableProviders
	for _, provider := range c.providers {
		if !provider.IsAvailable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.send(ctx, provider, body)
		elapsed := time.Since(start)
		prom.ObserveDispatchDuration(elapsed.Seconds(), provider.name)

		if errors.Is(err, ErrRejected) {
			provider.metrics.RecordSuccess(elapsed.Milliseconds())
			return resp, err
		}
		if err != nil {
			provider.metrics.RecordFailure()
			c.checkCircuitBreaker(provider)
			logger.Warn("whatsapp provider failed", "provider", provider.name, "reference", req.Reference, "error", err)
			lastErr = err
			continue
		}

		provider.metrics.RecordSuccess(elapsed.Milliseconds())
		logger.Info("whatsapp message accepted",
			"reference", req.Reference,
			"provider", provider.name,
			"id", resp.ID,
			"latency_ms", elapsed.Milliseconds())
		return resp, nil
	}

	return nil, fmt.Errorf("whatsapp send failed: %w", lastErr)
}

func (c *Client) send(ctx context.Context, provider *Provider, body []byte) (*SendResponse, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > c.config.Timeout {
		deadline = time.Now().Add(c.config.Timeout)
	}
	if err := provider.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	code := resp.StatusCode()
	switch {
	case code >= 500 || code == fasthttp.StatusTooManyRequests || code == fasthttp.StatusUnauthorized:
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", code, resp.Body())
	case code >= 400:
		out := &SendResponse{Status: StatusRejected, Provider: provider.name}
		_ = json.Unmarshal(resp.Body(), out)
		return out, fmt.Errorf("%w: status %d: %s", ErrRejected, code, out.Error)
	}

	out := &SendResponse{Provider: provider.name}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out.Status == StatusRejected {
		return out, fmt.Errorf("%w: %s", ErrRejected, out.Error)
	}
	return out, nil
}

func (c *Client) checkCircuitBreaker(provider *Provider) {
	fails := provider.metrics.ConsecutiveFails.Load()
	if fails < int32(c.config.CircuitBreakerThreshold) {
		return
	}
	provider.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).UnixNano())
	logger.Warn("circuit breaker opened", "provider", provider.name, "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
}

type ProviderStats struct {
	Name             string  `json:"name"`
	Available        bool    `json:"available"`
	TotalRequests    int64   `json:"totalRequests"`
	FailedReqs       int64   `json:"failedRequests"`
	SuccessRate      float64 `json:"successRate"`
	ConsecutiveFails int32   `json:"consecutiveFails"`
}

func (c *Client) Stats() []ProviderStats {
	stats := make([]ProviderStats, 0, len(c.providers))
	for _, p := range c.providers {
		stats = append(stats, ProviderStats{
			Name:             p.name,
			Available:        p.IsAvailable(),
			TotalRequests:    p.metrics.TotalRequests.Load(),
			FailedReqs:       p.metrics.FailedReqs.Load(),
			SuccessRate:      p.metrics.SuccessRate(),
			ConsecutiveFails: p.metrics.ConsecutiveFails.Load(),
		})
	}
	return stats
}
