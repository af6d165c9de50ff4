package connector

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/getmockd/soapconnect/pkg/config"
	"github.com/getmockd/soapconnect/pkg/logging"
	"github.com/getmockd/soapconnect/pkg/metrics"
	"github.com/getmockd/soapconnect/pkg/security"
	"github.com/getmockd/soapconnect/pkg/soap"
	"github.com/getmockd/soapconnect/pkg/transport"
	"github.com/getmockd/soapconnect/pkg/wsdl"
)

// ConnectorType is the single type name reported by Types.
const ConnectorType = "soap"

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Model consumes the operation table. Registered models are attached after
// every successful build.
type Model interface {
	Name() string
	Attach(t *Table)
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// WithMetrics records connection and call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Connector) { c.metrics = m }
}

// WithHTTPClient sets the HTTP client used for document fetches and calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Connector) { c.httpClient = hc }
}

// WithDocumentCache replaces the process-wide capability document cache.
func WithDocumentCache(cache *transport.DocumentCache) Option {
	return func(c *Connector) { c.cache = cache }
}

// Connector owns one connection to a SOAP service: the fetched capability
// document, the bound credential and the resulting operation table.
type Connector struct {
	settings   config.Settings
	logger     *slog.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
	cache      *transport.DocumentCache
	client     *transport.Client

	mu      sync.Mutex
	state   State
	table   *Table
	lastErr error
	waiters []func(*Table, error)
	subs    map[uint64]chan error
	nextSub uint64
	models  map[string]Model
}

// New creates a disconnected Connector. settings is copied and defaulted.
func New(settings config.Settings, opts ...Option) *Connector {
	settings.ApplyDefaults()
	c := &Connector{
		settings: settings,
		cache:    transport.SharedCache(),
		subs:     make(map[uint64]chan error),
		models:   make(map[string]Model),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)

	topts := []transport.Option{
		transport.WithLogger(c.logger),
		transport.WithMetrics(c.metrics),
		transport.WithRateLimit(settings.RateLimit),
	}
	if c.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(c.httpClient))
	}
	topts = append(topts, transport.WithTimeout(settings.RequestTimeoutDuration()))
	c.client = transport.New(topts...)

	c.logger.Debug("connector settings",
		"endpoint", settings.EndpointURL(),
		"document", settings.DocumentLocation(),
		"operations", len(settings.Operations),
		"remoting", settings.RemotingEnabled)
	return c
}

// Settings returns the effective settings.
func (c *Connector) Settings() config.Settings {
	return c.settings
}

// Types returns the connector type names.
func (c *Connector) Types() []string {
	return []string{ConnectorType}
}

// State returns the current lifecycle state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Table returns the published table, or nil before the first successful
// connect.
func (c *Connector) Table() *Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table
}

// ConnectAsync connects and reports the outcome to cb on another goroutine.
// A connected Connector reports its existing table without network activity.
// Calls made while an attempt is in flight wait for that attempt. A failed
// attempt is not retried until ConnectAsync is called again.
func (c *Connector) ConnectAsync(cb func(*Table, error)) {
	c.mu.Lock()
	switch c.state {
	case Connected:
		table := c.table
		c.mu.Unlock()
		if cb != nil {
			go cb(table, nil)
		}
		return
	case Connecting:
		if cb != nil {
			c.waiters = append(c.waiters, cb)
		}
		c.mu.Unlock()
		return
	}

	c.state = Connecting
	if cb != nil {
		c.waiters = append(c.waiters, cb)
	}
	c.mu.Unlock()

	go c.establish()
}

// Connect connects and blocks until the attempt finishes or ctx is done.
// Cancelling ctx abandons the wait, not the attempt.
func (c *Connector) Connect(ctx context.Context) (*Table, error) {
	type result struct {
		table *Table
		err   error
	}
	ch := make(chan result, 1)
	c.ConnectAsync(func(t *Table, err error) { ch <- result{t, err} })

	select {
	case r := <-ch:
		return r.table, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Define registers a model. When a table is already published the model is
// attached to it immediately.
func (c *Connector) Define(m Model) {
	c.mu.Lock()
	c.models[m.Name()] = m
	table := c.table
	c.mu.Unlock()

	if table != nil {
		c.logger.Debug("mixing methods into model", "model", m.Name())
		m.Attach(table)
	}
}

func (c *Connector) establish() {
	table, err := c.build(context.Background())

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	if err != nil {
		c.state = Failed
		c.lastErr = err
	} else {
		c.state = Connected
		c.table = table
		c.lastErr = nil
	}
	models := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		models = append(models, m)
	}
	subs := c.takeSubscribersLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("connect failed", "error", err)
		c.metrics.ConnectFinished(0, err)
	} else {
		for _, m := range models {
			c.logger.Debug("mixing methods into model", "model", m.Name())
			m.Attach(table)
		}
		c.logger.Info("connected", "operations", table.Len())
		c.metrics.ConnectFinished(table.Len(), nil)
	}

	for _, cb := range waiters {
		go cb(table, err)
	}
	for _, ch := range subs {
		ch <- err
	}
}

func (c *Connector) build(ctx context.Context) (*Table, error) {
	location := c.settings.DocumentLocation()
	if location == "" {
		return nil, &ConnectError{Cause: errors.New("no endpoint or document location configured")}
	}
	c.logger.Debug("reading capability document", "location", location)

	var cache *transport.DocumentCache
	if c.settings.CachingEnabled() {
		cache = c.cache
	}
	data, err := c.client.FetchDocument(ctx, location, cache)
	if err != nil {
		return nil, &ConnectError{Location: location, Cause: err}
	}

	doc, err := wsdl.Parse(data)
	if err != nil {
		if cache != nil {
			cache.Invalidate(location)
		}
		return nil, &ConnectError{Location: location, Cause: err}
	}
	c.logger.Debug("capability document loaded", "location", location, "services", len(doc.Services))

	if err := security.Bind(c.client, c.settings.EffectiveSecurity(), c.logger); err != nil {
		return nil, &ConnectError{Location: location, Cause: err}
	}

	c.client.SetHeaders(c.envelopeHeaders(soap.NewEncoder(doc, c.settings.IgnoredNamespaces)))

	table, err := BuildTable(doc, c.client, TableOptions{
		Endpoint:          c.settings.EndpointURL(),
		Overrides:         c.settings.Operations,
		IgnoredNamespaces: c.settings.IgnoredNamespaces,
		ResponseSuffixes:  c.settings.ResponseSuffixes,
		RemotingEnabled:   c.settings.RemotingEnabled,
		Logger:            c.logger,
	})
	if err != nil {
		return nil, &ConnectError{Location: location, Cause: err}
	}
	return table, nil
}

func (c *Connector) envelopeHeaders(enc *soap.Encoder) []string {
	headers := make([]string, 0, len(c.settings.SOAPHeaders))
	for _, h := range c.settings.SOAPHeaders {
		if h.IsRaw() {
			c.logger.Debug("adding soap header", "raw", true)
			headers = append(headers, h.Raw)
			continue
		}
		if h.Name == "" {
			c.logger.Warn("skipping soap header without a name", "namespace", h.Namespace)
			continue
		}
		c.logger.Debug("adding soap header", "name", h.Name, "namespace", h.Namespace)
		headers = append(headers, enc.ObjectToXML(h.Element, h.Name, h.Prefix, h.Namespace))
	}
	return headers
}
