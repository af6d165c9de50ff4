// Package transport sends SOAP envelopes over HTTP and loads capability
// documents.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/getmockd/soapconnect/pkg/logging"
	"github.com/getmockd/soapconnect/pkg/metrics"
	"github.com/getmockd/soapconnect/pkg/security"
	"github.com/getmockd/soapconnect/pkg/soap"
	"github.com/getmockd/soapconnect/pkg/util"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 32 << 20

// HTTPError is returned for non-2xx responses that do not carry a SOAP Fault.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, util.CompactEnvelope(e.Body, 512))
}

// Call describes one SOAP request.
type Call struct {
	Operation  string
	Endpoint   string
	SOAPAction string
	Version    soap.SOAPVersion
	// Body is the XML placed inside soap:Body.
	Body string
}

// Client posts SOAP envelopes. It holds the active credential and any extra
// envelope headers; both are set once per connection.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu       sync.RWMutex
	security security.Credential
	headers  []string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		copied := *hc
		c.httpClient = &copied
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit limits calls per second. Zero or negative means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithMetrics records call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// SetSecurity installs the active credential. Credentials that provide a TLS
// configuration replace the client's transport.
func (c *Client) SetSecurity(cred security.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.security = cred

	if p, ok := cred.(security.TLSProvider); ok {
		tr := c.cloneTransport()
		tr.TLSClientConfig = p.TLSConfig()
		hc := *c.httpClient
		hc.Transport = tr
		c.httpClient = &hc
	}
}

// cloneTransport copies the client's *http.Transport so proxy and dial
// settings survive a TLS credential. Other round trippers cannot carry a TLS
// config and are replaced by a copy of http.DefaultTransport.
func (c *Client) cloneTransport() *http.Transport {
	switch rt := c.httpClient.Transport.(type) {
	case *http.Transport:
		return rt.Clone()
	case nil:
	default:
		c.logger.Warn("custom HTTP transport replaced to apply client TLS", "transport", fmt.Sprintf("%T", rt))
	}
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		return base.Clone()
	}
	return &http.Transport{}
}

// Security returns the active credential, or nil.
func (c *Client) Security() security.Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.security
}

// SetHeaders replaces the XML fragments added to the soap:Header of every
// envelope.
func (c *Client) SetHeaders(headers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers = append([]string(nil), headers...)
}

// Headers returns the configured extra headers.
func (c *Client) Headers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.headers...)
}

// Invoke posts a SOAP envelope and returns the raw response envelope.
// A SOAP Fault in the response is returned as *soap.Fault.
func (c *Client) Invoke(ctx context.Context, call Call) ([]byte, error) {
	start := time.Now()
	resp, err := c.invoke(ctx, call)

	outcome := metrics.OutcomeOK
	var fault *soap.Fault
	switch {
	case errors.As(err, &fault):
		outcome = metrics.OutcomeFault
	case err != nil:
		outcome = metrics.OutcomeError
	}
	c.metrics.ObserveCall(call.Operation, outcome, time.Since(start))
	return resp, err
}

func (c *Client) invoke(ctx context.Context, call Call) ([]byte, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.metrics.RateLimited()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	c.mu.RLock()
	cred := c.security
	headers := append([]string(nil), c.headers...)
	hc := c.httpClient
	c.mu.RUnlock()

	if p, ok := cred.(security.HeaderProvider); ok {
		h, err := p.SecurityHeader()
		if err != nil {
			return nil, fmt.Errorf("security header: %w", err)
		}
		headers = append([]string{h}, headers...)
	}

	envelope := soap.BuildEnvelope(call.Version, headers, call.Body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", soap.ContentType(call.Version, call.SOAPAction))
	if call.Version != soap.SOAP12 {
		req.Header.Set("SOAPAction", `"`+call.SOAPAction+`"`)
	}
	if d, ok := cred.(security.RequestDecorator); ok {
		d.Decorate(req)
	}

	c.logger.Debug("soap request",
		"operation", call.Operation,
		"endpoint", call.Endpoint,
		"action", call.SOAPAction,
		"body", util.CompactEnvelope(string(envelope), 0))

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("soap response",
		"operation", call.Operation,
		"status", resp.StatusCode,
		"body", util.CompactEnvelope(string(body), 0))

	if fault := detectFault(resp, body); fault != nil {
		return body, fault
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func detectFault(resp *http.Response, body []byte) *soap.Fault {
	if resp.StatusCode < 400 && !bytes.Contains(body, []byte("Fault")) {
		return nil
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "xml") {
		return nil
	}
	doc, _, err := soap.ParseEnvelope(body)
	if err != nil {
		return nil
	}
	return soap.ParseFault(doc)
}
