// Package status aggregates the live view of a monitored endpoint:
// its latest probe outcome, recent history and whether a check task
// is currently scheduled for it.
package status

import (
	"math"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/history"
	"github.com/proxypulse/proxypulse/internal/probe"
)

// UptimeWindow is the number of most recent probes considered by
// UptimePercent.
const UptimeWindow = 5

// RunChecker reports whether a check task is live for an endpoint id.
// *supervisor.Supervisor satisfies it.
type RunChecker interface {
	IsRunning(id int64) bool
}

// Snapshot is the condensed state of one endpoint.
type Snapshot struct {
	Endpoint endpoint.Endpoint `json:"endpoint"`
	Latest   *probe.Result     `json:"latest,omitempty"`
	Running  bool              `json:"task_running"`
}

// View extends Snapshot with the retained probe history, newest first.
type View struct {
	Snapshot
	History []probe.Result `json:"history"`
}

// Aggregator joins the in-memory history with the supervisor's
// run state. It holds no state of its own.
type Aggregator struct {
	hist *history.Store
	runs RunChecker
}

func New(hist *history.Store, runs RunChecker) *Aggregator {
	return &Aggregator{hist: hist, runs: runs}
}

// Snapshot returns the endpoint's latest result and run state.
// Latest is nil when no probe has completed yet.
func (a *Aggregator) Snapshot(ep endpoint.Endpoint) Snapshot {
	s := Snapshot{Endpoint: ep, Running: a.runs.IsRunning(ep.ID)}
	if latest, ok := a.hist.Latest(ep.ID); ok {
		s.Latest = &latest
	}
	return s
}

// FullView returns the snapshot plus every retained probe result,
// newest first.
func (a *Aggregator) FullView(ep endpoint.Endpoint) View {
	return View{
		Snapshot: a.Snapshot(ep),
		History:  a.hist.Recent(ep.ID, history.Cap, history.NewestFirst),
	}
}

// UptimePercent reports the share of successful probes among the last
// UptimeWindow results, rounded to the nearest whole percent. An
// endpoint with no recorded probes has 0 uptime.
func (a *Aggregator) UptimePercent(id int64) int {
	recent := a.hist.Recent(id, UptimeWindow, history.OldestFirst)
	if len(recent) == 0 {
		return 0
	}
	ok := 0
	for _, r := range recent {
		if r.OK {
			ok++
		}
	}
	return int(math.Round(float64(ok) / float64(len(recent)) * 100))
}
