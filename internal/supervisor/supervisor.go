package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/history"
	"github.com/proxypulse/proxypulse/internal/metrics"
	"github.com/proxypulse/proxypulse/internal/probe"
)

// ErrAlreadyRunning is returned by Start when a live checker task already
// exists for the endpoint id.
var ErrAlreadyRunning = errors.New("checker already running")

// DefaultTimeout is the probe timeout ceiling; each task uses
// min(interval, ceiling) so a hung probe cannot starve the next cycle.
const DefaultTimeout = 10 * time.Second

// Config holds the process-wide checker settings. Read-only after startup.
type Config struct {
	// VerifyURL is the fixed target tunnel probes request through the
	// proxy under test. Empty falls back to probe.DefaultVerifyURL.
	VerifyURL string
	// Timeout is the probe timeout ceiling. Zero means DefaultTimeout.
	Timeout time.Duration
}

// ResultWriter receives every probe result for durable storage.
type ResultWriter interface {
	AppendResult(ctx context.Context, endpointID int64, r probe.Result) error
}

// Handle binds an endpoint id to one running checker task generation.
type Handle struct {
	Endpoint   endpoint.Endpoint
	Generation uint64

	cancel    context.CancelFunc
	done      chan struct{}
	cancelled atomic.Bool
}

// Cancelled reports whether this handle has been signalled to stop.
func (h *Handle) Cancelled() bool { return h.cancelled.Load() }

// Done is closed once the task's loop has fully exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) signalCancel() {
	h.cancelled.Store(true)
	h.cancel()
}

// entry serializes lifecycle calls for one endpoint id. Calls for different
// ids never contend.
type entry struct {
	mu     sync.Mutex
	handle *Handle
}

// Supervisor owns the mapping from endpoint id to its running checker task.
// Start, Restart and Stop are the only way tasks are created or destroyed;
// at most one live task exists per endpoint at any instant.
type Supervisor struct {
	cfg    Config
	hist   *history.Store
	logger *slog.Logger

	mu      sync.Mutex
	entries map[int64]*entry

	results ResultWriter
	sinks   []history.Sink

	live atomic.Int64

	// proberFor is a test seam; nil selects by endpoint kind.
	proberFor func(ep endpoint.Endpoint) probe.Prober
}

func New(hist *history.Store, cfg Config) *Supervisor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Supervisor{
		cfg:     cfg,
		hist:    hist,
		logger:  slog.Default(),
		entries: make(map[int64]*entry),
	}
}

// SetLogger replaces the supervisor's logger.
func (s *Supervisor) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetResultWriter configures durable storage for probe results.
func (s *Supervisor) SetResultWriter(w ResultWriter) {
	s.mu.Lock()
	s.results = w
	s.mu.Unlock()
}

// SetSinks configures external history sinks (ClickHouse, OpenSearch, etc.).
// Passing no sinks clears the list.
func (s *Supervisor) SetSinks(sinks ...history.Sink) {
	s.mu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.mu.Unlock()
}

func (s *Supervisor) entryFor(id int64, create bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[id]
	if e == nil && create {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

func validate(ep endpoint.Endpoint) error {
	if err := ep.Validate(); err != nil {
		return fmt.Errorf("endpoint %d: %w", ep.ID, err)
	}
	return nil
}

// Start spawns a checker task for ep at its current generation. It fails
// with ErrAlreadyRunning if a live handle exists for ep.ID and rejects
// invalid configuration instead of coercing it.
func (s *Supervisor) Start(ep endpoint.Endpoint) (*Handle, error) {
	if err := validate(ep); err != nil {
		return nil, err
	}
	e := s.entryFor(ep.ID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle != nil && !e.handle.Cancelled() {
		return nil, fmt.Errorf("endpoint %d: %w", ep.ID, ErrAlreadyRunning)
	}
	return s.startLocked(e, ep), nil
}

// Restart atomically (per id) cancels the existing task, waits for its loop
// to exit, and starts a new one bound to the updated configuration. The old
// task's in-flight probe is aborted, so probes for one endpoint never
// overlap.
func (s *Supervisor) Restart(ep endpoint.Endpoint) (*Handle, error) {
	if err := validate(ep); err != nil {
		return nil, err
	}
	e := s.entryFor(ep.ID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if h := e.handle; h != nil && !h.Cancelled() {
		h.signalCancel()
		<-h.done
	}
	return s.startLocked(e, ep), nil
}

// Stop cancels the task for id and waits until its loop has exited. Stopping
// an unknown id is a no-op, not an error. History purging is the caller's
// responsibility, coordinated with deletion.
func (s *Supervisor) Stop(id int64) {
	e := s.entryFor(id, false)
	if e == nil {
		return
	}
	e.mu.Lock()
	if h := e.handle; h != nil && !h.Cancelled() {
		h.signalCancel()
		<-h.done
	}
	e.handle = nil
	e.mu.Unlock()

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// IsRunning reports whether a live (non-cancelled) task exists for id.
func (s *Supervisor) IsRunning(id int64) bool {
	e := s.entryFor(id, false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle != nil && !e.handle.Cancelled()
}

// Running returns the number of live checker tasks.
func (s *Supervisor) Running() int {
	return int(s.live.Load())
}

// Shutdown cancels every handle and waits for all task loops to exit.
// It snapshots the entry map and releases s.mu before touching any entry
// lock: an exiting task must take s.mu inside record, and a concurrent
// Stop or Restart holds its entry lock while waiting for that task, so
// holding both here would cycle.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.entries = make(map[int64]*entry)
	s.mu.Unlock()

	handles := make([]*Handle, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.handle != nil && !e.handle.Cancelled() {
			e.handle.signalCancel()
			handles = append(handles, e.handle)
		}
		e.handle = nil
		e.mu.Unlock()
	}
	for _, h := range handles {
		<-h.done
	}
	s.logger.Info("supervisor shut down", "cancelled_tasks", len(handles))
}

// startLocked spawns the task goroutine. Caller holds e.mu.
func (s *Supervisor) startLocked(e *entry, ep endpoint.Endpoint) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		Endpoint:   ep,
		Generation: ep.Generation,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	e.handle = h
	s.live.Add(1)
	metrics.IncTaskStart(ep.ID)
	metrics.SetRunningTasks(int(s.live.Load()))
	go s.run(ctx, h)
	return h
}
