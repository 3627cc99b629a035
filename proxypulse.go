package proxypulse

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	icfg "github.com/proxypulse/proxypulse/internal/config"
	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/history"
	"github.com/proxypulse/proxypulse/internal/metrics"
	"github.com/proxypulse/proxypulse/internal/probe"
	"github.com/proxypulse/proxypulse/internal/status"
	"github.com/proxypulse/proxypulse/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Endpoint = endpoint.Endpoint

type Kind = endpoint.Kind

const (
	KindHTTP  = endpoint.KindHTTP
	KindProxy = endpoint.KindProxy
)

type Result = probe.Result

type Event = history.Event

type Sink = history.Sink

// CheckerConfig tunes the probe loops.
type CheckerConfig = supervisor.Config

// ParseKind maps API-facing type strings ("http", "nginx", "squid",
// "proxy") onto a Kind.
func ParseKind(s string) (Kind, error) { return endpoint.ParseKind(s) }

// Checker is a thin facade over the internal supervisor and history
// store. It provides a stable public API for embedding.
type Checker struct {
	hist *history.Store
	sup  *supervisor.Supervisor
	agg  *status.Aggregator
}

func New(cfg CheckerConfig) *Checker {
	hist := history.NewStore()
	sup := supervisor.New(hist, cfg)
	return &Checker{hist: hist, sup: sup, agg: status.New(hist, sup)}
}

func (c *Checker) SetLogger(l *slog.Logger) { c.sup.SetLogger(l) }
func (c *Checker) SetSinks(sinks ...Sink)   { c.sup.SetSinks(sinks...) }

func (c *Checker) Start(ep Endpoint) error {
	_, err := c.sup.Start(ep)
	return err
}

func (c *Checker) Restart(ep Endpoint) error {
	_, err := c.sup.Restart(ep)
	return err
}

func (c *Checker) Stop(id int64) {
	c.sup.Stop(id)
	c.hist.Purge(id)
}

func (c *Checker) IsRunning(id int64) bool { return c.sup.IsRunning(id) }
func (c *Checker) Running() int            { return c.sup.Running() }
func (c *Checker) Shutdown()               { c.sup.Shutdown() }

// Latest returns the most recent probe result for the endpoint.
func (c *Checker) Latest(id int64) (Result, bool) { return c.hist.Latest(id) }

// History returns the retained probe results, newest first.
func (c *Checker) History(id int64) []Result {
	return c.hist.Recent(id, history.Cap, history.NewestFirst)
}

// UptimePercent reports the success rate over the last few probes.
func (c *Checker) UptimePercent(id int64) int { return c.agg.UptimePercent(id) }

// Config is the TOML server configuration.
type Config = icfg.Config

func LoadConfig(path string) (Config, error) { return icfg.Load(path) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It runs in the caller goroutine and returns any
// listen error.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
