package endpoint

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind classifies how an endpoint is probed.
type Kind string

const (
	// KindHTTP is a plain HTTP/HTTPS server probed with a direct request.
	KindHTTP Kind = "http-like"
	// KindProxy is a forward proxy probed by tunneling a request through it.
	KindProxy Kind = "proxy"
)

const (
	DefaultPort      = 80
	DefaultProxyPort = 3128
	DefaultInterval  = 60 * time.Second
)

// ParseKind maps the API-facing type strings onto a Kind.
// "http" and "nginx" are http-like; "squid" and "proxy" are proxies.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http", "nginx", string(KindHTTP):
		return KindHTTP, nil
	case "squid", "proxy":
		return KindProxy, nil
	default:
		return "", fmt.Errorf("unknown endpoint type: %q", s)
	}
}

// Endpoint is one monitored target. The checker treats it as an immutable
// snapshot: updates produce a new Generation and restart the task bound to it.
type Endpoint struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name,omitempty"`
	Kind       Kind          `json:"kind"`
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	Scheme     string        `json:"scheme,omitempty"`
	Path       string        `json:"path,omitempty"`
	Interval   time.Duration `json:"interval"`
	Generation uint64        `json:"generation"`
	CreatedAt  time.Time     `json:"created_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at,omitempty"`
}

// Normalize fills in defaults the same way the management API does:
// port 80 (3128 for proxies), scheme inferred https on port 443, path "/",
// interval 60s.
func (e *Endpoint) Normalize() {
	if e.Port == 0 {
		if e.Kind == KindProxy {
			e.Port = DefaultProxyPort
		} else {
			e.Port = DefaultPort
		}
	}
	if e.Scheme == "" {
		if e.Port == 443 {
			e.Scheme = "https"
		} else {
			e.Scheme = "http"
		}
	}
	if e.Path == "" {
		e.Path = "/"
	}
	if e.Interval == 0 {
		e.Interval = DefaultInterval
	}
}

// Validate rejects configurations the checker refuses to run.
func (e Endpoint) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Kind, validation.Required, validation.In(KindHTTP, KindProxy)),
		validation.Field(&e.Host, validation.Required),
		validation.Field(&e.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&e.Scheme, validation.In("", "http", "https")),
		validation.Field(&e.Interval, validation.Required, validation.Min(time.Second)),
	)
}

// URL is the direct probe target: scheme://host:port/path.
func (e Endpoint) URL() string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "http"
	}
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, e.Host, e.Port, path)
}

// ProxyURL is the forward-proxy address used by the tunnel probe.
func (e Endpoint) ProxyURL() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}
