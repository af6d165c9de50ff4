package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCall("GetUser", OutcomeOK, 20*time.Millisecond)
	m.ObserveCall("GetUser", OutcomeOK, 30*time.Millisecond)
	m.ObserveCall("GetUser", OutcomeFault, time.Millisecond)
	m.DocumentFetched("http", nil)
	m.DocumentFetched("file", errors.New("missing"))
	m.ConnectFinished(4, nil)
	m.ConnectFinished(0, errors.New("boom"))
	m.GatewayRequest("GetUser", http.StatusOK)
	m.RateLimited()

	assert.InDelta(t, 2, testutil.ToFloat64(m.calls.WithLabelValues("GetUser", OutcomeOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.calls.WithLabelValues("GetUser", OutcomeFault)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.documentFetches.WithLabelValues("file", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.connects.WithLabelValues("error")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.operations), 0, "failed connects keep the last table size")
	assert.InDelta(t, 1, testutil.ToFloat64(m.gatewayRequests.WithLabelValues("GetUser", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rateLimited), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("x", OutcomeOK, time.Second)
		m.DocumentFetched("cache", nil)
		m.ConnectFinished(1, nil)
		m.GatewayRequest("x", 500)
		m.RateLimited()
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveCall("Add", OutcomeOK, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `soapconnect_calls_total{operation="Add",outcome="ok"} 1`)
}

func TestInit_Idempotent(t *testing.T) {
	first := Init()
	assert.Same(t, first, Init())
	assert.Same(t, first, Default())
}
