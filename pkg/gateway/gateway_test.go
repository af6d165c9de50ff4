package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapconnect/pkg/config"
	"github.com/getmockd/soapconnect/pkg/connector"
	"github.com/getmockd/soapconnect/pkg/metrics"
	"github.com/getmockd/soapconnect/pkg/ratelimit"
	"github.com/getmockd/soapconnect/pkg/soap"
	"github.com/getmockd/soapconnect/pkg/transport"
)

// newUpstream serves foo.wsdl and answers Foo calls. A request whose body
// mentions "explode" gets a SOAP fault.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	wsdlData, err := os.ReadFile(filepath.Join("testdata", "foo.wsdl"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write(wsdlData)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", soap.SOAP11ContentType)
		if strings.Contains(string(body), "explode") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(soap.BuildFault(&soap.Fault{Version: soap.SOAP11, Code: "soap:Server", Reason: "boom"}))
			return
		}
		_, _ = w.Write(soap.BuildEnvelope(soap.SOAP11, nil,
			`<f:FooResponse xmlns:f="urn:foo"><f:value>ok</f:value></f:FooResponse>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, settings config.Settings, opts ...Option) *Gateway {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	conn := connector.New(settings,
		connector.WithDocumentCache(transport.NewDocumentCache()),
		connector.WithMetrics(m))
	g := New(conn, append([]Option{WithMetrics(m)}, opts...)...)
	t.Cleanup(func() { _ = g.Stop(context.Background()) })
	return g
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestGateway_ListOperations(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL, RemotingEnabled: true})

	rec := do(t, g.Handler(), http.MethodGet, "/operations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ops []operationInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ops))
	require.Len(t, ops, 6)
	assert.Equal(t, "Foo", ops[0].Name)
	assert.Equal(t, "document", ops[0].Style)
	assert.Equal(t, "urn:foo/Foo", ops[0].SOAPAction)
	assert.NotNil(t, ops[0].Remoting)
	assert.Equal(t, "S2_P2_Foo", ops[3].Name)
}

func TestGateway_Call(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL})
	h := g.Handler()

	rec := do(t, h, http.MethodPost, "/operations/Foo", `{"id":"1","count":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"value":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `soapconnect_gateway_requests_total{operation="Foo",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `soapconnect_calls_total{operation="Foo",outcome="ok"} 1`)
}

func TestGateway_Errors(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL})
	h := g.Handler()

	rec := do(t, h, http.MethodPost, "/operations/Nope", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "method_not_found")

	rec = do(t, h, http.MethodPost, "/operations/Foo", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/operations/Foo", `{"id":"explode"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body struct {
		Error   string       `json:"error"`
		Details faultDetails `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "soap_fault", body.Error)
	assert.Equal(t, "soap:Server", body.Details.Code)
	assert.Equal(t, "boom", body.Details.Reason)
}

func TestGateway_Codec(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL})
	h := g.Handler()

	rec := do(t, h, http.MethodPost, "/jsonToXML/GetFoo", `{"id":"9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `<tns:GetFooRequest xmlns:tns="urn:foo"><tns:id>9</tns:id></tns:GetFooRequest>`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/xmlToJSON/GetFoo", `<GetFoo><value>x</value></GetFoo>`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"value":"x"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/xmlToJSON/GetFoo", `<broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_LargeIntegersStayDecimal(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL})

	rec := do(t, g.Handler(), http.MethodPost, "/jsonToXML/Foo", `{"id":"a","count":1000000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `<tns:Foo xmlns:tns="urn:foo"><tns:id>a</tns:id><tns:count>1000000</tns:count></tns:Foo>`,
		rec.Body.String())

	rec = do(t, g.Handler(), http.MethodPost, "/jsonToXML/Foo", `{"id":"a","count":12345678}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<tns:count>12345678</tns:count>`)

	rec = do(t, g.Handler(), http.MethodPost, "/jsonToXML/Foo", `{"id":"a"} {"id":"b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_UnknownOperationsShareOneMetricLabel(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL})
	h := g.Handler()

	for i := 0; i < 20; i++ {
		rec := do(t, h, http.MethodPost, fmt.Sprintf("/operations/nope%d", i), `{}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/jsonToXML/GetFoo", `{"id":"1"}`).Code)

	metricsBody := do(t, h, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metricsBody, `soapconnect_gateway_requests_total{operation="unknown",status="404"} 20`)
	assert.Contains(t, metricsBody, `soapconnect_gateway_requests_total{operation="GetFoo",status="200"} 1`)
	assert.NotContains(t, metricsBody, `operation="nope`)
}

func TestGateway_Health(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL})

	rec := do(t, g.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","operations":6}`, rec.Body.String())

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	bad := newGateway(t, config.Settings{Endpoint: down.URL}, WithHealthTimeout(time.Second))

	rec = do(t, bad.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_connected")
}

func TestGateway_RateLimit(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL}, WithRateLimit(ratelimit.Config{Rate: 1, Burst: 1}))
	h := g.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/operations", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/operations", "").Code)
}

func TestGateway_StartStop(t *testing.T) {
	upstream := newUpstream(t)
	g := newGateway(t, config.Settings{Endpoint: upstream.URL})

	require.NoError(t, g.Start("127.0.0.1:0"))
	resp, err := http.Get("http://" + g.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
