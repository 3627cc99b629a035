// Package server provides the embeddable HTTP management API.
//
// Endpoints (under basePath):
//
//	POST   /auth/register        body: {username, password}
//	POST   /auth/login           body: {username, password}
//	GET    /healthz
//	GET    /servers
//	GET    /servers/:id
//	GET    /servers/:id/status
//	GET    /servers/:id/uptime
//	POST   /servers              (auth) register endpoint, start checking
//	PUT    /servers/:id          (auth) update endpoint, restart its task
//	DELETE /servers/:id          (auth) stop task, drop endpoint and history
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/proxypulse/proxypulse/internal/auth"
	"github.com/proxypulse/proxypulse/internal/history"
	"github.com/proxypulse/proxypulse/internal/status"
	"github.com/proxypulse/proxypulse/internal/store"
	"github.com/proxypulse/proxypulse/internal/supervisor"
)

// Options wires the router's collaborators.
type Options struct {
	Store      store.Store
	Supervisor *supervisor.Supervisor
	History    *history.Store
	Aggregator *status.Aggregator
	Auth       *auth.Service
	BasePath   string
	Logger     *slog.Logger
}

type Router struct {
	store    store.Store
	sup      *supervisor.Supervisor
	hist     *history.Store
	agg      *status.Aggregator
	auth     *auth.Service
	basePath string
	logger   *slog.Logger
}

func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:    opts.Store,
		sup:      opts.Supervisor,
		hist:     opts.History,
		agg:      opts.Aggregator,
		auth:     opts.Auth,
		basePath: sanitizeBase(opts.BasePath),
		logger:   logger,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted
// in any server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)

	group.GET("/healthz", r.handleHealthz)
	group.POST("/auth/register", r.handleRegister)
	group.POST("/auth/login", r.handleLogin)

	group.GET("/servers", r.handleList)
	group.GET("/servers/:id", r.handleGet)
	group.GET("/servers/:id/status", r.handleStatus)
	group.GET("/servers/:id/uptime", r.handleUptime)

	protected := group.Group("", r.auth.GinAuth())
	protected.POST("/servers", r.handleCreate)
	protected.PUT("/servers/:id", r.handleUpdate)
	protected.DELETE("/servers/:id", r.handleDelete)

	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok", "running_tasks": r.sup.Running()})
}
