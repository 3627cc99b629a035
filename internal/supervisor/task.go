package supervisor

import (
	"context"
	"time"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/history"
	"github.com/proxypulse/proxypulse/internal/metrics"
	"github.com/proxypulse/proxypulse/internal/probe"
)

// run is the checker task loop: probe, record, sleep for the interval,
// repeat until cancelled. Cancellation is observed at the top of each cycle
// and aborts an in-flight probe via its context, so Stop and Restart return
// within one timeout window rather than one full interval.
func (s *Supervisor) run(ctx context.Context, h *Handle) {
	defer close(h.done)
	defer func() {
		n := s.live.Add(-1)
		metrics.SetRunningTasks(int(n))
	}()

	ep := h.Endpoint
	p := s.prober(ep)
	timeout := s.cfg.Timeout
	if ep.Interval < timeout {
		timeout = ep.Interval
	}

	s.logger.Info("checker task started",
		"endpoint", ep.ID, "name", ep.Name, "kind", string(ep.Kind),
		"interval", ep.Interval, "generation", ep.Generation)

	for {
		if ctx.Err() != nil {
			s.logger.Info("checker task stopped", "endpoint", ep.ID, "generation", ep.Generation)
			return
		}

		pctx, cancel := context.WithTimeout(ctx, timeout)
		res := probe.Run(pctx, p, ep)
		cancel()

		// A probe aborted by Stop/Restart is not an observation of the
		// endpoint; drop it instead of polluting history.
		if ctx.Err() != nil {
			s.logger.Info("checker task stopped", "endpoint", ep.ID, "generation", ep.Generation)
			return
		}
		s.record(ep, res)

		timer := time.NewTimer(ep.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("checker task stopped", "endpoint", ep.ID, "generation", ep.Generation)
			return
		case <-timer.C:
		}
	}
}

func (s *Supervisor) prober(ep endpoint.Endpoint) probe.Prober {
	if s.proberFor != nil {
		return s.proberFor(ep)
	}
	return probe.ForKind(ep.Kind, s.cfg.VerifyURL)
}

// record fans one result out to the in-memory history, the durable store,
// any configured sinks, metrics and the log. Probe failures are recorded
// data, never task faults.
func (s *Supervisor) record(ep endpoint.Endpoint, res probe.Result) {
	s.hist.Append(ep.ID, res)

	s.mu.Lock()
	w := s.results
	sinks := append([]history.Sink(nil), s.sinks...)
	s.mu.Unlock()

	if w != nil {
		if err := w.AppendResult(context.Background(), ep.ID, res); err != nil {
			s.logger.Warn("failed to persist probe result", "endpoint", ep.ID, "error", err)
		}
	}
	if len(sinks) > 0 {
		evt := history.Event{
			EndpointID:   ep.ID,
			EndpointName: ep.Name,
			OccurredAt:   time.Now().UTC(),
			Result:       res,
		}
		for _, sink := range sinks {
			if err := sink.Send(context.Background(), evt); err != nil {
				s.logger.Warn("failed to export probe result", "endpoint", ep.ID, "error", err)
			}
		}
	}

	metrics.ObserveProbe(ep.ID, res.OK, res.LatencyMS/1000)

	if res.OK {
		s.logger.Debug("probe ok",
			"endpoint", ep.ID, "status", res.StatusCode, "latency_ms", res.LatencyMS)
	} else {
		s.logger.Warn("probe failed",
			"endpoint", ep.ID, "error", res.Error, "latency_ms", res.LatencyMS)
	}
}
