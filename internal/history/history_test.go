package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxypulse/proxypulse/internal/probe"
)

func result(i int) probe.Result {
	return probe.Result{
		Timestamp:  time.Unix(int64(i), 0).UTC(),
		OK:         i%2 == 0,
		StatusCode: 200 + i,
		LatencyMS:  float64(i),
	}
}

func TestAppendCapsAtHundred(t *testing.T) {
	s := NewStore()
	const total = 250
	for i := 0; i < total; i++ {
		s.Append(7, result(i))
	}
	require.Equal(t, Cap, s.Len(7))

	got := s.Recent(7, 0, OldestFirst)
	require.Len(t, got, Cap)
	// exactly the last 100 inserted, in insertion order
	for i, r := range got {
		assert.Equal(t, 200+total-Cap+i, r.StatusCode)
	}
}

func TestLatestAndOrdering(t *testing.T) {
	s := NewStore()
	_, ok := s.Latest(1)
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		s.Append(1, result(i))
	}
	latest, ok := s.Latest(1)
	require.True(t, ok)
	assert.Equal(t, 204, latest.StatusCode)

	newest := s.Recent(1, 3, NewestFirst)
	require.Len(t, newest, 3)
	assert.Equal(t, 204, newest[0].StatusCode)
	assert.Equal(t, 202, newest[2].StatusCode)

	oldest := s.Recent(1, 3, OldestFirst)
	require.Len(t, oldest, 3)
	assert.Equal(t, 202, oldest[0].StatusCode)
	assert.Equal(t, 204, oldest[2].StatusCode)
}

func TestRecentMoreThanRetained(t *testing.T) {
	s := NewStore()
	s.Append(1, result(0))
	s.Append(1, result(1))
	got := s.Recent(1, 10, NewestFirst)
	assert.Len(t, got, 2)
}

func TestPurge(t *testing.T) {
	s := NewStore()
	s.Append(1, result(0))
	s.Purge(1)
	assert.Zero(t, s.Len(1))
	_, ok := s.Latest(1)
	assert.False(t, ok)
}

func TestConcurrentAppendsDifferentIDs(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for id := int64(0); id < 8; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				s.Append(id, result(i))
				if i%10 == 0 {
					_, _ = s.Latest(id)
					_ = s.Recent(id, 5, OldestFirst)
				}
			}
		}(id)
	}
	wg.Wait()
	for id := int64(0); id < 8; id++ {
		assert.Equal(t, Cap, s.Len(id), fmt.Sprintf("id %d", id))
	}
}

func TestOpenSearchSinkSend(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/probes/_doc" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = b
		w.WriteHeader(201)
	}))
	defer ts.Close()

	sink := NewOpenSearchSink(ts.URL, "probes")
	e := Event{EndpointID: 3, EndpointName: "web", OccurredAt: time.Now().UTC(), Result: result(1)}
	require.NoError(t, sink.Send(context.Background(), e))

	var m map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &m))
	assert.Equal(t, float64(3), m["endpoint_id"])
	assert.Equal(t, "web", m["endpoint_name"])
}

func TestOpenSearchSinkErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	sink := NewOpenSearchSink(ts.URL, "probes")
	err := sink.Send(context.Background(), Event{})
	assert.Error(t, err)
}
