// Package gateway exposes a connector's operation table over HTTP: one JSON
// route per operation, the codec entry points, health and metrics.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getmockd/soapconnect/pkg/connector"
	"github.com/getmockd/soapconnect/pkg/httputil"
	"github.com/getmockd/soapconnect/pkg/logging"
	"github.com/getmockd/soapconnect/pkg/metrics"
	"github.com/getmockd/soapconnect/pkg/ratelimit"
	"github.com/getmockd/soapconnect/pkg/soap"
	"github.com/getmockd/soapconnect/pkg/transport"
)

const (
	maxRequestBody       = 10 << 20
	defaultHealthTimeout = 5 * time.Second

	// unknownOperation labels requests for names outside the operation table.
	unknownOperation = "unknown"
)

// Gateway serves a Connector over HTTP.
type Gateway struct {
	conn          *connector.Connector
	logger        *slog.Logger
	metrics       *metrics.Metrics
	limiter       *ratelimit.PerIP
	healthTimeout time.Duration

	server   *http.Server
	listener net.Listener
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithRateLimit limits requests per client IP.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(g *Gateway) { g.limiter = ratelimit.NewPerIP(cfg) }
}

// WithHealthTimeout bounds how long /health waits for the connection.
func WithHealthTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.healthTimeout = d }
}

// New creates a Gateway for conn.
func New(conn *connector.Connector, opts ...Option) *Gateway {
	g := &Gateway{conn: conn, healthTimeout: defaultHealthTimeout}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.OrNop(g.logger)
	return g
}

// Handler returns the gateway's routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.Handle("GET /metrics", g.metrics.Handler())
	mux.HandleFunc("GET /operations", g.handleListOperations)
	mux.Handle("POST /operations/{name}", g.observe(g.handleCall))
	mux.Handle("POST /"+connector.ReservedJSONToXML+"/{name}", g.observe(g.handleJSONToXML))
	mux.Handle("POST /"+connector.ReservedXMLToJSON+"/{name}", g.observe(g.handleXMLToJSON))

	onLimited := func(r *http.Request) {
		g.metrics.RateLimited()
		g.logger.Warn("gateway request rate limited", "path", r.URL.Path, "remote", r.RemoteAddr)
	}
	return ratelimit.Middleware(g.limiter, onLimited)(mux)
}

// Start listens on addr and serves in the background.
func (g *Gateway) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	g.listener = ln
	g.server = &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("starting gateway", "addr", ln.Addr().String())
	go func() {
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway error", "error", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started.
func (g *Gateway) Addr() string {
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.limiter != nil {
		g.limiter.Stop()
	}
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

type operationInfo struct {
	Name       string              `json:"name"`
	Service    string              `json:"service"`
	Port       string              `json:"port"`
	Operation  string              `json:"operation"`
	Style      string              `json:"style,omitempty"`
	SOAPAction string              `json:"soapAction,omitempty"`
	Endpoint   string              `json:"endpoint"`
	Version    string              `json:"version"`
	Remoting   *connector.Remoting `json:"remoting,omitempty"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), g.healthTimeout)
	defer cancel()

	if err := g.conn.Ping(ctx); err != nil {
		httputil.WriteErrorWithDetails(w, http.StatusServiceUnavailable, "not_connected", "NOT Connected", err.Error())
		return
	}
	httputil.WriteOK(w, map[string]any{"status": "ok", "operations": g.conn.Table().Len()})
}

func (g *Gateway) handleListOperations(w http.ResponseWriter, r *http.Request) {
	table, ok := g.table(w, r)
	if !ok {
		return
	}
	out := make([]operationInfo, 0, table.Len())
	for _, b := range table.Bindings() {
		out = append(out, operationInfo{
			Name:       b.Name,
			Service:    b.Service,
			Port:       b.Port,
			Operation:  b.Operation.Name,
			Style:      string(b.Operation.Style),
			SOAPAction: b.Operation.SOAPAction,
			Endpoint:   b.Endpoint,
			Version:    string(b.Version),
			Remoting:   b.Remoting,
		})
	}
	httputil.WriteOK(w, out)
}

func (g *Gateway) handleCall(w http.ResponseWriter, r *http.Request) {
	table, ok := g.table(w, r)
	if !ok {
		return
	}
	input, err := readJSON(w, r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	name := r.PathValue("name")
	out, err := table.Call(r.Context(), name, input)
	if err != nil {
		g.writeError(w, name, err)
		return
	}
	httputil.WriteOK(w, out)
}

func (g *Gateway) handleJSONToXML(w http.ResponseWriter, r *http.Request) {
	table, ok := g.table(w, r)
	if !ok {
		return
	}
	input, err := readJSON(w, r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	name := r.PathValue("name")
	xml, err := table.JSONToXML(name, input)
	if err != nil {
		g.writeError(w, name, err)
		return
	}
	httputil.WriteXML(w, http.StatusOK, xml)
}

func (g *Gateway) handleXMLToJSON(w http.ResponseWriter, r *http.Request) {
	table, ok := g.table(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	name := r.PathValue("name")
	out, err := table.XMLToJSON(name, string(data))
	if err != nil {
		if errors.Is(err, soap.ErrInvalidXML) {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_xml", err.Error())
			return
		}
		g.writeError(w, name, err)
		return
	}
	httputil.WriteOK(w, out)
}

// table returns the published table, connecting first if needed.
func (g *Gateway) table(w http.ResponseWriter, r *http.Request) (*connector.Table, bool) {
	table, err := g.conn.Connect(r.Context())
	if err != nil {
		httputil.WriteErrorWithDetails(w, http.StatusServiceUnavailable, "not_connected", "NOT Connected", err.Error())
		return nil, false
	}
	return table, true
}

func readJSON(w http.ResponseWriter, r *http.Request) (any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	// Numbers stay json.Number so large integers reach the XML unchanged.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

type faultDetails struct {
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
	Actor  string `json:"actor,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (g *Gateway) writeError(w http.ResponseWriter, operation string, err error) {
	var (
		fault   *soap.Fault
		httpErr *transport.HTTPError
	)
	switch {
	case errors.Is(err, connector.ErrMethodNotFound):
		httputil.WriteError(w, http.StatusNotFound, "method_not_found", err.Error())
	case errors.As(err, &fault):
		httputil.WriteErrorWithDetails(w, http.StatusBadGateway, "soap_fault", fault.Reason, faultDetails{
			Code:   fault.Code,
			Reason: fault.Reason,
			Actor:  fault.Actor,
			Detail: fault.Detail,
		})
	case errors.As(err, &httpErr):
		httputil.WriteErrorWithDetails(w, http.StatusBadGateway, "upstream_error", err.Error(),
			map[string]int{"status": httpErr.StatusCode})
	case errors.Is(err, connector.ErrResponseElementNotFound):
		httputil.WriteError(w, http.StatusBadGateway, "response_element_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httputil.WriteError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		g.logger.Error("operation failed", "operation", operation, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
}

// statusWriter captures the response status for metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController support.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (g *Gateway) observe(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		next(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		g.metrics.GatewayRequest(g.operationLabel(r.PathValue("name")), sw.status)
	})
}

// operationLabel keeps metric cardinality bounded by the operation table:
// names the table does not expose are counted as unknownOperation.
func (g *Gateway) operationLabel(name string) string {
	table := g.conn.Table()
	if table == nil {
		return unknownOperation
	}
	if _, ok := table.Lookup(name); !ok {
		return unknownOperation
	}
	return name
}
