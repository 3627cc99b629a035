package history

import (
	"sync"

	"github.com/proxypulse/proxypulse/internal/probe"
)

// Cap is the hard per-endpoint retention limit. Appending past it evicts the
// oldest result.
const Cap = 100

// Order selects the direction results are returned in.
type Order int

const (
	// NewestFirst serves history views (reverse-chronological).
	NewestFirst Order = iota
	// OldestFirst serves recent-window computations such as uptime.
	OldestFirst
)

// Store keeps a bounded, insertion-ordered sequence of probe results per
// endpoint. Each endpoint's sequence is written by its own checker task and
// read by arbitrary callers; a per-endpoint lock keeps appends for different
// endpoints from blocking each other.
type Store struct {
	mu      sync.RWMutex
	buckets map[int64]*bucket
}

type bucket struct {
	mu   sync.RWMutex
	buf  [Cap]probe.Result
	head int // index of the oldest entry
	n    int
}

func NewStore() *Store {
	return &Store{buckets: make(map[int64]*bucket)}
}

func (s *Store) bucketFor(id int64, create bool) *bucket {
	s.mu.RLock()
	b := s.buckets[id]
	s.mu.RUnlock()
	if b != nil || !create {
		return b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.buckets[id]; b == nil {
		b = &bucket{}
		s.buckets[id] = b
	}
	return b
}

// Append inserts r as the newest result for id, evicting the oldest entry
// once the cap is reached. O(1).
func (s *Store) Append(id int64, r probe.Result) {
	b := s.bucketFor(id, true)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n < Cap {
		b.buf[(b.head+b.n)%Cap] = r
		b.n++
		return
	}
	b.buf[b.head] = r
	b.head = (b.head + 1) % Cap
}

// Latest returns the most recent result for id, if any.
func (s *Store) Latest(id int64) (probe.Result, bool) {
	b := s.bucketFor(id, false)
	if b == nil {
		return probe.Result{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.n == 0 {
		return probe.Result{}, false
	}
	return b.buf[(b.head+b.n-1)%Cap], true
}

// Recent returns up to n of the most recent results for id in the given
// order. n <= 0 means everything retained.
func (s *Store) Recent(id int64, n int, order Order) []probe.Result {
	b := s.bucketFor(id, false)
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.n == 0 {
		return nil
	}
	if n <= 0 || n > b.n {
		n = b.n
	}
	out := make([]probe.Result, n)
	// the n newest entries, oldest of them first
	first := b.n - n
	for i := 0; i < n; i++ {
		r := b.buf[(b.head+first+i)%Cap]
		if order == OldestFirst {
			out[i] = r
		} else {
			out[n-1-i] = r
		}
	}
	return out
}

// Len reports how many results are retained for id.
func (s *Store) Len(id int64) int {
	b := s.bucketFor(id, false)
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.n
}

// Purge drops all history for id. Used when an endpoint is deleted.
func (s *Store) Purge(id int64) {
	s.mu.Lock()
	delete(s.buckets, id)
	s.mu.Unlock()
}
