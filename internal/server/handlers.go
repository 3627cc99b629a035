package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/probe"
	"github.com/proxypulse/proxypulse/internal/status"
	"github.com/proxypulse/proxypulse/internal/store"
)

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

// endpointRequest is the create/update payload. Omitted fields take
// the usual defaults: port 80 (3128 for proxies), scheme https when
// port is 443, path "/", interval 60s.
type endpointRequest struct {
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Scheme          string `json:"scheme"`
	Path            string `json:"path"`
	IntervalSeconds int    `json:"interval_seconds"`
}

// endpointView is the API shape of an endpoint; intervals are seconds.
type endpointView struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name,omitempty"`
	Kind            endpoint.Kind `json:"kind"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Scheme          string        `json:"scheme"`
	Path            string        `json:"path"`
	IntervalSeconds int           `json:"interval_seconds"`
	Generation      uint64        `json:"generation"`
	CreatedAt       time.Time     `json:"created_at,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at,omitempty"`
}

func viewOf(ep endpoint.Endpoint) endpointView {
	return endpointView{
		ID:              ep.ID,
		Name:            ep.Name,
		Kind:            ep.Kind,
		Host:            ep.Host,
		Port:            ep.Port,
		Scheme:          ep.Scheme,
		Path:            ep.Path,
		IntervalSeconds: int(ep.Interval / time.Second),
		Generation:      ep.Generation,
		CreatedAt:       ep.CreatedAt,
		UpdatedAt:       ep.UpdatedAt,
	}
}

func (req endpointRequest) endpoint() (endpoint.Endpoint, error) {
	kind, err := endpoint.ParseKind(req.Kind)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	ep := endpoint.Endpoint{
		Name:     req.Name,
		Kind:     kind,
		Host:     req.Host,
		Port:     req.Port,
		Scheme:   req.Scheme,
		Path:     req.Path,
		Interval: time.Duration(req.IntervalSeconds) * time.Second,
	}
	ep.Normalize()
	if err := ep.Validate(); err != nil {
		return endpoint.Endpoint{}, err
	}
	return ep, nil
}

func (r *Router) handleCreate(c *gin.Context) {
	var req endpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	ep, err := req.endpoint()
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	if err := r.store.SaveEndpoint(c.Request.Context(), &ep); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if _, err := r.sup.Start(ep); err != nil {
		r.logger.Error("start check task", "id", ep.ID, "error", err)
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusCreated, viewOf(ep))
}

func (r *Router) handleList(c *gin.Context) {
	eps, err := r.store.ListEndpoints(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	views := make([]endpointView, len(eps))
	for i, ep := range eps {
		views[i] = viewOf(ep)
	}
	writeJSON(c, http.StatusOK, views)
}

func (r *Router) handleGet(c *gin.Context) {
	ep, ok := r.lookup(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, viewOf(ep))
}

func (r *Router) handleUpdate(c *gin.Context) {
	ep, ok := r.lookup(c)
	if !ok {
		return
	}
	var req endpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	updated, err := req.endpoint()
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	updated.ID = ep.ID
	updated.Generation = ep.Generation
	updated.CreatedAt = ep.CreatedAt
	if err := r.store.UpdateEndpoint(c.Request.Context(), &updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "server not found"})
			return
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if _, err := r.sup.Restart(updated); err != nil {
		r.logger.Error("restart check task", "id", updated.ID, "error", err)
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, viewOf(updated))
}

func (r *Router) handleDelete(c *gin.Context) {
	ep, ok := r.lookup(c)
	if !ok {
		return
	}
	r.sup.Stop(ep.ID)
	r.hist.Purge(ep.ID)
	ctx := c.Request.Context()
	if err := r.store.PurgeResults(ctx, ep.ID); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if err := r.store.DeleteEndpoint(ctx, ep.ID); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

// statusResp mirrors what operators poll: the endpoint, its latest
// probe, the retained history newest first, and whether a task runs.
type statusResp struct {
	Server      endpointView   `json:"server"`
	Latest      *probe.Result  `json:"latest,omitempty"`
	History     []probe.Result `json:"history"`
	TaskRunning bool           `json:"task_running"`
}

func (r *Router) handleStatus(c *gin.Context) {
	ep, ok := r.lookup(c)
	if !ok {
		return
	}
	v := r.agg.FullView(ep)
	writeJSON(c, http.StatusOK, statusResp{
		Server:      viewOf(ep),
		Latest:      v.Latest,
		History:     v.History,
		TaskRunning: v.Running,
	})
}

func (r *Router) handleUptime(c *gin.Context) {
	ep, ok := r.lookup(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"id":             ep.ID,
		"uptime_percent": r.agg.UptimePercent(ep.ID),
		"window":         status.UptimeWindow,
	})
}

// lookup resolves the :id path param to a stored endpoint, writing
// the error response itself when that fails.
func (r *Router) lookup(c *gin.Context) (endpoint.Endpoint, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id"})
		return endpoint.Endpoint{}, false
	}
	ep, err := r.store.GetEndpoint(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "server not found"})
		} else {
			writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		}
		return endpoint.Endpoint{}, false
	}
	return ep, true
}
