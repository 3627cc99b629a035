package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/proxypulse/proxypulse/internal/endpoint"
)

// Result is the immutable record of one reachability check.
// LatencyMS is recorded even when the probe fails (time until failure).
type Result struct {
	Timestamp  time.Time         `json:"ts"`
	OK         bool              `json:"ok"`
	StatusCode int               `json:"status_code,omitempty"`
	LatencyMS  float64           `json:"latency_ms"`
	Error      string            `json:"error,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Prober performs one reachability check. Implementations are stateless and
// must honor ctx cancellation mid-flight.
type Prober interface {
	Probe(ctx context.Context, ep endpoint.Endpoint) Result
}

// ForKind selects the probe strategy for an endpoint kind. verifyURL is the
// fixed target tunnel probes request through the proxy under test.
func ForKind(kind endpoint.Kind, verifyURL string) Prober {
	if kind == endpoint.KindProxy {
		return Tunnel{VerifyURL: verifyURL}
	}
	return Direct{}
}

// Run invokes p and converts any panic into a failed Result so a misbehaving
// probe can never take down its checker task.
func Run(ctx context.Context, p Prober, ep endpoint.Endpoint) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = failure(start, fmt.Sprintf("probe fault: %v", r))
		}
	}()
	return p.Probe(ctx, ep)
}

// maxHeaderSnapshot caps the diagnostic header capture on successful probes.
const maxHeaderSnapshot = 24

func snapshotHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(out) >= maxHeaderSnapshot {
			break
		}
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func success(start time.Time, status int, headers http.Header) Result {
	return Result{
		Timestamp:  time.Now().UTC(),
		OK:         true,
		StatusCode: status,
		LatencyMS:  elapsedMS(start),
		Headers:    snapshotHeaders(headers),
	}
}

func failure(start time.Time, reason string) Result {
	return Result{
		Timestamp: time.Now().UTC(),
		OK:        false,
		LatencyMS: elapsedMS(start),
		Error:     reason,
	}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// classify turns a transport error into a short diagnostic tag.
func classify(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns failure: " + dnsErr.Err
	}
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return "tls failure: " + err.Error()
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection refused"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return err.Error()
}
