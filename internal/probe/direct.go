package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/proxypulse/proxypulse/internal/endpoint"
)

// Direct probes an http-like endpoint with one GET to scheme://host:port/path.
// The check validates reachability, not application-level success: ANY
// received status code counts as ok, including 5xx. Only connection-level
// failures (timeout, refused, DNS, TLS) mark the endpoint down.
type Direct struct {
	// Client overrides the transport, mainly for tests. Nil uses a
	// per-call client without its own timeout; the caller bounds the
	// probe via ctx.
	Client *http.Client
}

func (d Direct) Probe(ctx context.Context, ep endpoint.Endpoint) Result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL(), nil)
	if err != nil {
		return failure(start, err.Error())
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return failure(start, classify(err))
	}
	defer func() { _ = resp.Body.Close() }()
	return success(start, resp.StatusCode, resp.Header)
}

func (d Direct) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
	}
}
