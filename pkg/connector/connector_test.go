package connector

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapconnect/pkg/config"
	"github.com/getmockd/soapconnect/pkg/soap"
	"github.com/getmockd/soapconnect/pkg/transport"
)

type connectResult struct {
	table *Table
	err   error
}

// fooServer serves foo.wsdl on GET and a FooResponse envelope on POST.
type fooServer struct {
	*httptest.Server
	fetches  atomic.Int32
	gate     chan struct{}
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func newFooServer(t testing.TB, gated bool) *fooServer {
	t.Helper()
	wsdlData := readFixture(t, "foo.wsdl")
	s := &fooServer{}
	if gated {
		s.gate = make(chan struct{})
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			s.fetches.Add(1)
			if s.gate != nil {
				<-s.gate
			}
			_, _ = w.Write(wsdlData)
			return
		}
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, r)
		s.bodies = append(s.bodies, string(body))
		s.mu.Unlock()
		w.Header().Set("Content-Type", soap.SOAP11ContentType)
		_, _ = w.Write(soap.BuildEnvelope(soap.SOAP11, nil,
			`<f:FooResponse xmlns:f="urn:foo"><f:value>ok</f:value></f:FooResponse>`))
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestConnector(settings config.Settings) *Connector {
	return New(settings, WithDocumentCache(transport.NewDocumentCache()))
}

func TestConnector_ConcurrentConnectsShareOneFetch(t *testing.T) {
	srv := newFooServer(t, true)
	c := newTestConnector(config.Settings{Endpoint: srv.URL})

	results := make(chan connectResult, 2)
	cb := func(table *Table, err error) { results <- connectResult{table, err} }
	c.ConnectAsync(cb)
	c.ConnectAsync(cb)
	assert.Equal(t, Connecting, c.State())

	close(srv.gate)
	r1, r2 := <-results, <-results
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	assert.Same(t, r1.table, r2.table)
	assert.Equal(t, int32(1), srv.fetches.Load())
	assert.Equal(t, Connected, c.State())

	table, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, r1.table, table)
	assert.Equal(t, int32(1), srv.fetches.Load(), "a connected connector does not fetch again")
}

func TestConnector_CallbackIsNeverSynchronous(t *testing.T) {
	srv := newFooServer(t, false)
	c := newTestConnector(config.Settings{Endpoint: srv.URL})
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	// An unbuffered send would deadlock if the callback ran on this goroutine.
	done := make(chan *Table)
	c.ConnectAsync(func(table *Table, _ error) { done <- table })
	assert.NotNil(t, <-done)
}

func TestConnector_FailureThenRetry(t *testing.T) {
	var healthy atomic.Bool
	wsdlData := readFixture(t, "foo.wsdl")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !healthy.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(wsdlData)
	}))
	defer srv.Close()

	c := newTestConnector(config.Settings{Endpoint: srv.URL})
	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, srv.URL+"?wsdl", connErr.Location)
	assert.Equal(t, Failed, c.State())
	assert.Nil(t, c.Table())

	healthy.Store(true)
	table, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, table.Len())
	assert.Equal(t, Connected, c.State())
}

func TestConnector_MalformedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<definitions xmlns="http://schemas.xmlsoap.org/wsdl/" xmlns:tns="urn:x">
  <service name="S"><port name="P" binding="tns:Missing"/></service>
</definitions>`)
	}))
	defer srv.Close()

	c := newTestConnector(config.Settings{Endpoint: srv.URL})
	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrMalformedDocument)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestConnector_NoLocation(t *testing.T) {
	c := newTestConnector(config.Settings{})
	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestConnector_AwaitReadyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		http.Error(w, "late", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := newTestConnector(config.Settings{Endpoint: srv.URL, ConnectionTimeout: 50})

	var calls atomic.Int32
	done := make(chan error, 4)
	start := time.Now()
	c.AwaitReadyAsync(func(err error) {
		calls.Add(1)
		done <- err
	})

	err := <-done
	elapsed := time.Since(start)
	assert.ErrorIs(t, err, ErrConnectionTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 150*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Connecting, c.State())
}

func TestConnector_AwaitReadyReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestConnector(config.Settings{Endpoint: srv.URL})
	err := c.AwaitReady(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.NotErrorIs(t, err, ErrConnectionTimeout)

	err = c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestConnector_AwaitReadyConnects(t *testing.T) {
	srv := newFooServer(t, false)
	c := newTestConnector(config.Settings{Endpoint: srv.URL})

	require.NoError(t, c.AwaitReady(context.Background()))
	assert.Equal(t, Connected, c.State())
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, int32(1), srv.fetches.Load())
}

func TestConnector_CallWithBearerAndHeaders(t *testing.T) {
	srv := newFooServer(t, false)
	c := newTestConnector(config.Settings{
		Endpoint: srv.URL,
		Security: &config.SecurityConfig{Scheme: "Bearer", Token: "T"},
		SOAPHeaders: []config.HeaderConfig{
			{Raw: `<t:Trace xmlns:t="urn:t">1</t:Trace>`},
			{Element: map[string]any{"key": "k"}, Name: "Auth", Prefix: "a", Namespace: "urn:a"},
		},
	})

	table, err := c.Connect(context.Background())
	require.NoError(t, err)

	out, err := table.Call(context.Background(), "Foo", map[string]any{"id": "1", "count": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": "ok"}, out)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.requests, 1)
	req := srv.requests[0]
	assert.Equal(t, "Bearer T", req.Header.Get("Authorization"))
	assert.Equal(t, `"urn:foo/Foo"`, req.Header.Get("SOAPAction"))

	body := srv.bodies[0]
	assert.Contains(t, body, `<t:Trace xmlns:t="urn:t">1</t:Trace>`)
	assert.Contains(t, body, `<a:Auth xmlns:a="urn:a"><a:key>k</a:key></a:Auth>`)
	assert.Contains(t, body, `<tns:Foo xmlns:tns="urn:foo">`)
}

func TestConnector_TopLevelUsernameImpliesBasic(t *testing.T) {
	srv := newFooServer(t, false)
	c := newTestConnector(config.Settings{Endpoint: srv.URL, Username: "u", Password: "p"})

	table, err := c.Connect(context.Background())
	require.NoError(t, err)
	_, err = table.Call(context.Background(), "Foo", map[string]any{"id": "1"})
	require.NoError(t, err)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	user, pass, ok := srv.requests[0].BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
}

type recordingModel struct {
	name   string
	mu     sync.Mutex
	tables []*Table
}

func (m *recordingModel) Name() string { return m.name }

func (m *recordingModel) Attach(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = append(m.tables, t)
}

func (m *recordingModel) attached() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables)
}

func TestConnector_DefineAttachesModels(t *testing.T) {
	srv := newFooServer(t, false)
	c := newTestConnector(config.Settings{Endpoint: srv.URL})

	before := &recordingModel{name: "before"}
	c.Define(before)
	assert.Zero(t, before.attached())

	table, err := c.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, before.attached())
	assert.Same(t, table, before.tables[0])

	after := &recordingModel{name: "after"}
	c.Define(after)
	assert.Equal(t, 1, after.attached())
}

func TestConnector_TypesAndDocumentOverride(t *testing.T) {
	srv := newFooServer(t, false)
	c := newTestConnector(config.Settings{
		Endpoint: "http://unused.invalid/ws",
		WSDL:     srv.URL + "/service.wsdl",
	})
	assert.Equal(t, []string{"soap"}, c.Types())

	table, err := c.Connect(context.Background())
	require.NoError(t, err)
	b, ok := table.Lookup("Foo")
	require.True(t, ok)
	assert.Equal(t, "http://unused.invalid/ws", b.Endpoint)
	settings := c.Settings()
	assert.True(t, strings.HasPrefix(settings.DocumentLocation(), srv.URL))
}
