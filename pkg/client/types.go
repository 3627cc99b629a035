package client

import "time"

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is a bearer token issued by the daemon.
type Token struct {
	Type      string    `json:"token_type"`
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ServerRequest creates or updates an endpoint. Zero fields take the
// daemon's defaults.
type ServerRequest struct {
	Name            string `json:"name,omitempty"`
	Kind            string `json:"kind"`
	Host            string `json:"host"`
	Port            int    `json:"port,omitempty"`
	Scheme          string `json:"scheme,omitempty"`
	Path            string `json:"path,omitempty"`
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
}

// Server is a registered endpoint.
type Server struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name,omitempty"`
	Kind            string    `json:"kind"`
	Host            string    `json:"host"`
	Port            int       `json:"port"`
	Scheme          string    `json:"scheme"`
	Path            string    `json:"path"`
	IntervalSeconds int       `json:"interval_seconds"`
	Generation      uint64    `json:"generation"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// ProbeResult is one recorded check outcome.
type ProbeResult struct {
	Timestamp  time.Time         `json:"ts"`
	OK         bool              `json:"ok"`
	StatusCode int               `json:"status_code,omitempty"`
	LatencyMS  float64           `json:"latency_ms"`
	Error      string            `json:"error,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// ServerStatus is the aggregated view of one endpoint.
type ServerStatus struct {
	Server      Server        `json:"server"`
	Latest      *ProbeResult  `json:"latest,omitempty"`
	History     []ProbeResult `json:"history"`
	TaskRunning bool          `json:"task_running"`
}

// Uptime is the recent success rate of an endpoint.
type Uptime struct {
	ID            int64 `json:"id"`
	UptimePercent int   `json:"uptime_percent"`
	Window        int   `json:"window"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
