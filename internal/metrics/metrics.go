package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxypulse",
			Subsystem: "probe",
			Name:      "checks_total",
			Help:      "Number of completed probes by outcome.",
		}, []string{"endpoint", "outcome"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "proxypulse",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Observed probe round-trip time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"},
	)
	taskStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxypulse",
			Subsystem: "checker",
			Name:      "task_starts_total",
			Help:      "Number of checker task starts (including restarts).",
		}, []string{"endpoint"},
	)
	runningTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "proxypulse",
			Subsystem: "checker",
			Name:      "running_tasks",
			Help:      "Current number of live checker tasks.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{probesTotal, probeDuration, taskStarts, runningTasks}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics from the
// DefaultGatherer. The caller wires the route and server.
func Handler() http.Handler { return promhttp.Handler() }

// Lightweight helpers used by internal packages. They no-op until Register
// has been called.

func ObserveProbe(endpointID int64, ok bool, seconds float64) {
	if !regOK.Load() {
		return
	}
	id := strconv.FormatInt(endpointID, 10)
	outcome := "ok"
	if !ok {
		outcome = "fail"
	}
	probesTotal.WithLabelValues(id, outcome).Inc()
	probeDuration.WithLabelValues(id).Observe(seconds)
}

func IncTaskStart(endpointID int64) {
	if regOK.Load() {
		taskStarts.WithLabelValues(strconv.FormatInt(endpointID, 10)).Inc()
	}
}

func SetRunningTasks(n int) {
	if regOK.Load() {
		runningTasks.Set(float64(n))
	}
}
