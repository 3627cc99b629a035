package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxypulse/proxypulse/internal/endpoint"
)

func endpointFor(t *testing.T, ts *httptest.Server) endpoint.Endpoint {
	t.Helper()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port := 80
	if p := u.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		require.NoError(t, err)
		port = parsed
	}
	return endpoint.Endpoint{
		ID:       1,
		Kind:     endpoint.KindHTTP,
		Host:     u.Hostname(),
		Port:     port,
		Scheme:   u.Scheme,
		Path:     "/",
		Interval: time.Minute,
	}
}

func TestDirectProbeRecordsAnyStatusAsOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Server", "unit")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	res := Direct{}.Probe(context.Background(), endpointFor(t, ts))
	assert.True(t, res.OK, "a reachable 500 is still up")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Empty(t, res.Error)
	assert.Equal(t, "unit", res.Headers["Server"])
	assert.GreaterOrEqual(t, res.LatencyMS, 0.0)
	assert.False(t, res.Timestamp.IsZero())
}

func TestDirectProbeTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := Direct{}.Probe(ctx, endpointFor(t, ts))
	assert.False(t, res.OK)
	assert.Zero(t, res.StatusCode)
	assert.NotEmpty(t, res.Error)
	assert.Greater(t, res.LatencyMS, 0.0, "latency recorded even on failure")
}

func TestDirectProbeConnectionRefused(t *testing.T) {
	ep := endpoint.Endpoint{
		Kind: endpoint.KindHTTP, Host: "127.0.0.1", Port: 1, Scheme: "http", Path: "/", Interval: time.Minute,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := Direct{}.Probe(ctx, ep)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
}

func TestTunnelProbeThroughProxy(t *testing.T) {
	// a handler acting as a trivial forward proxy for plain HTTP requests
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.RequestURI, "http://") {
			http.Error(w, "expected absolute-form request", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer proxy.Close()

	u, err := url.Parse(proxy.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	ep := endpoint.Endpoint{
		Kind: endpoint.KindProxy, Host: u.Hostname(), Port: port, Interval: time.Minute,
	}
	res := Tunnel{VerifyURL: "http://verify.invalid/get"}.Probe(context.Background(), ep)
	assert.True(t, res.OK)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestTunnelProbeUnreachableProxy(t *testing.T) {
	ep := endpoint.Endpoint{
		Kind: endpoint.KindProxy, Host: "127.0.0.1", Port: 1, Interval: time.Minute,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := Tunnel{VerifyURL: "http://verify.invalid/get"}.Probe(ctx, ep)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
}

type panicProber struct{}

func (panicProber) Probe(context.Context, endpoint.Endpoint) Result { panic("boom") }

func TestRunConvertsPanicToFailedResult(t *testing.T) {
	res := Run(context.Background(), panicProber{}, endpoint.Endpoint{})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "probe fault")
}

func TestForKind(t *testing.T) {
	_, isTunnel := ForKind(endpoint.KindProxy, "http://v/").(Tunnel)
	assert.True(t, isTunnel)
	_, isDirect := ForKind(endpoint.KindHTTP, "").(Direct)
	assert.True(t, isDirect)
}
