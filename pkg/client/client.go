// Package client is the public Go client for the proxypulse
// management API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Client talks to a proxypulse daemon.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Token    string       // bearer token for mutating calls
	Logger   *slog.Logger // optional logger for client operations
	TLS      *TLSClientConfig
	Insecure bool // skip TLS verification
}

// TLSClientConfig holds TLS configuration for the client
type TLSClientConfig struct {
	Enabled    bool
	CACert     string // CA certificate file path
	ClientCert string
	ClientKey  string
	ServerName string
	SkipVerify bool
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// New creates a new proxypulse API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	transport := &http.Transport{}
	if (config.TLS != nil && config.TLS.Enabled) || config.Insecure {
		tlsConfig, err := setupClientTLS(config)
		if err != nil {
			config.Logger.Error("TLS setup failed", "error", err)
		} else {
			transport.TLSClientConfig = tlsConfig
		}
	}

	return &Client{
		baseURL: config.BaseURL,
		token:   config.Token,
		logger:  config.Logger,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// SetToken replaces the bearer token used for mutating calls.
func (c *Client) SetToken(token string) { c.token = token }

// IsReachable checks if the daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		c.logger.Debug("daemon unreachable", "error", err)
		return false
	}
	return true
}

// Register creates an API user.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register",
		credentials{Username: username, Password: password}, nil)
}

// Login exchanges credentials for a bearer token and stores it on the
// client for subsequent mutating calls.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var token Token
	err := c.do(ctx, http.MethodPost, "/auth/login",
		credentials{Username: username, Password: password}, &token)
	if err != nil {
		return Token{}, err
	}
	c.token = token.Value
	return token, nil
}

// AddServer registers an endpoint; the daemon starts checking it
// immediately.
func (c *Client) AddServer(ctx context.Context, req ServerRequest) (Server, error) {
	var server Server
	if err := c.do(ctx, http.MethodPost, "/servers", req, &server); err != nil {
		return Server{}, err
	}
	return server, nil
}

// ListServers returns all registered endpoints.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	var servers []Server
	if err := c.do(ctx, http.MethodGet, "/servers", nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// GetServer returns one endpoint.
func (c *Client) GetServer(ctx context.Context, id int64) (Server, error) {
	var server Server
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/servers/%d", id), nil, &server); err != nil {
		return Server{}, err
	}
	return server, nil
}

// UpdateServer replaces an endpoint's settings; its check task restarts
// with the new configuration.
func (c *Client) UpdateServer(ctx context.Context, id int64, req ServerRequest) (Server, error) {
	var server Server
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/servers/%d", id), req, &server); err != nil {
		return Server{}, err
	}
	return server, nil
}

// RemoveServer stops the check task and drops the endpoint with its
// history.
func (c *Client) RemoveServer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/servers/%d", id), nil, nil)
}

// Status returns the endpoint's latest probe, history and task state.
func (c *Client) Status(ctx context.Context, id int64) (ServerStatus, error) {
	var st ServerStatus
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/servers/%d/status", id), nil, &st); err != nil {
		return ServerStatus{}, err
	}
	return st, nil
}

// Uptime returns the endpoint's recent success rate.
func (c *Client) Uptime(ctx context.Context, id int64) (Uptime, error) {
	var up Uptime
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/servers/%d/uptime", id), nil, &up); err != nil {
		return Uptime{}, err
	}
	return up, nil
}

func setupClientTLS(config Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if config.Insecure {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}

	if config.TLS != nil {
		if config.TLS.SkipVerify {
			tlsConfig.InsecureSkipVerify = true
		}
		if config.TLS.ServerName != "" {
			tlsConfig.ServerName = config.TLS.ServerName
		}
		if config.TLS.CACert != "" {
			if err := loadCACert(tlsConfig, config.TLS.CACert); err != nil {
				return nil, fmt.Errorf("failed to load CA certificate: %w", err)
			}
		}
		if config.TLS.ClientCert != "" && config.TLS.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(config.TLS.ClientCert, config.TLS.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
	}

	return tlsConfig, nil
}

func loadCACert(tlsConfig *tls.Config, caCertPath string) error {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return fmt.Errorf("failed to read CA certificate file: %w", err)
	}
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return fmt.Errorf("failed to parse CA certificate")
	}
	tlsConfig.RootCAs = caCertPool
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed", "error", err, "path", path)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %s", errorResp.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
