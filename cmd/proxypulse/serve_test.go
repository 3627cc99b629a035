package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/history"
	"github.com/proxypulse/proxypulse/internal/probe"
	"github.com/proxypulse/proxypulse/internal/store/sqlite"
	"github.com/proxypulse/proxypulse/internal/supervisor"
)

func TestResumeEndpointsReloadsHistory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()
	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	ctx := context.Background()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "resume.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, db.EnsureSchema(ctx))

	ep := endpoint.Endpoint{
		Name: "resumed", Kind: endpoint.KindHTTP,
		Host: u.Hostname(), Port: port, Scheme: "http", Path: "/",
		Interval: time.Minute,
	}
	require.NoError(t, db.SaveEndpoint(ctx, &ep))

	// Results a previous run would have persisted, oldest first.
	base := time.Now().Add(-time.Hour).UTC()
	for i, code := range []int{201, 202, 203} {
		r := probe.Result{Timestamp: base.Add(time.Duration(i) * time.Minute), OK: true, StatusCode: code, LatencyMS: 5}
		require.NoError(t, db.AppendResult(ctx, ep.ID, r))
	}

	hist := history.NewStore()
	sup := supervisor.New(hist, supervisor.Config{Timeout: time.Second})
	sup.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer sup.Shutdown()

	require.NoError(t, resumeEndpoints(ctx, db, hist, sup,
		slog.New(slog.NewTextHandler(io.Discard, nil))))

	// History is answerable immediately, before any new probe lands.
	require.GreaterOrEqual(t, hist.Len(ep.ID), 3)
	chrono := hist.Recent(ep.ID, history.Cap, history.OldestFirst)
	require.GreaterOrEqual(t, len(chrono), 3)
	assert.Equal(t, 201, chrono[0].StatusCode)
	assert.Equal(t, 202, chrono[1].StatusCode)
	assert.Equal(t, 203, chrono[2].StatusCode)

	latest, ok := hist.Latest(ep.ID)
	require.True(t, ok)
	assert.True(t, latest.OK)

	assert.True(t, sup.IsRunning(ep.ID))
}
