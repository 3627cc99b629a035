package probe

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/proxypulse/proxypulse/internal/endpoint"
)

// DefaultVerifyURL is requested through the proxy under test when no
// verification URL is configured.
const DefaultVerifyURL = "https://httpbin.org/get"

// Tunnel probes a forward proxy by issuing one GET to a fixed verification
// URL routed through host:port. Receiving any response through the tunnel is
// ok; failing to establish the tunnel or silence until the deadline is not.
type Tunnel struct {
	VerifyURL string
	// Transport overrides the proxied transport, mainly for tests.
	Transport http.RoundTripper
}

func (t Tunnel) Probe(ctx context.Context, ep endpoint.Endpoint) Result {
	start := time.Now()
	target := t.VerifyURL
	if target == "" {
		target = DefaultVerifyURL
	}
	rt := t.Transport
	if rt == nil {
		proxyURL, err := url.Parse(ep.ProxyURL())
		if err != nil {
			return failure(start, err.Error())
		}
		rt = &http.Transport{
			Proxy:             http.ProxyURL(proxyURL),
			DisableKeepAlives: true,
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failure(start, err.Error())
	}
	client := &http.Client{Transport: rt}
	resp, err := client.Do(req)
	if err != nil {
		return failure(start, classify(err))
	}
	defer func() { _ = resp.Body.Close() }()
	return success(start, resp.StatusCode, resp.Header)
}
