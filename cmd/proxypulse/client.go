package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient talks to a running proxypulse daemon.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration, token string) *APIClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type endpointPayload struct {
	Name            string `json:"name,omitempty"`
	Kind            string `json:"kind"`
	Host            string `json:"host"`
	Port            int    `json:"port,omitempty"`
	Scheme          string `json:"scheme,omitempty"`
	Path            string `json:"path,omitempty"`
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
}

type tokenResponse struct {
	Type      string    `json:"token_type"`
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register creates an API user.
func (c *APIClient) Register(username, password string) error {
	return c.do(http.MethodPost, "/auth/register",
		map[string]string{"username": username, "password": password}, nil)
}

// Login exchanges credentials for a bearer token.
func (c *APIClient) Login(username, password string) (*tokenResponse, error) {
	var token tokenResponse
	err := c.do(http.MethodPost, "/auth/login",
		map[string]string{"username": username, "password": password}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// AddServer registers an endpoint and starts its check task.
func (c *APIClient) AddServer(payload endpointPayload) (map[string]any, error) {
	var view map[string]any
	if err := c.do(http.MethodPost, "/servers", payload, &view); err != nil {
		return nil, err
	}
	return view, nil
}

// ListServers returns all registered endpoints.
func (c *APIClient) ListServers() ([]map[string]any, error) {
	var views []map[string]any
	if err := c.do(http.MethodGet, "/servers", nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// ServerStatus returns an endpoint with its latest probe and history.
func (c *APIClient) ServerStatus(id int64) (map[string]any, error) {
	var st map[string]any
	if err := c.do(http.MethodGet, fmt.Sprintf("/servers/%d/status", id), nil, &st); err != nil {
		return nil, err
	}
	return st, nil
}

// RemoveServer stops the check task and drops the endpoint.
func (c *APIClient) RemoveServer(id int64) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/servers/%d", id), nil, nil)
}

func (c *APIClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("API error: %s", errorResp.Error)
		}
		return fmt.Errorf("API error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
