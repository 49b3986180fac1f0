// Package client provides HTTP client functionality to communicate with a
// running svcwatch daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loykin/svcwatch/internal/engine"
	"github.com/loykin/svcwatch/internal/policy"
	"github.com/loykin/svcwatch/internal/scanner"
)

// Client talks to the svcwatch HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates an API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// Services lists all recognized service processes.
func (c *Client) Services(ctx context.Context) ([]engine.ServiceView, error) {
	var out []engine.ServiceView
	err := c.do(ctx, http.MethodGet, "/services", nil, &out)
	return out, err
}

// Service returns the merged view for one PID.
func (c *Client) Service(ctx context.Context, pid int32) (engine.ServiceView, error) {
	var out engine.ServiceView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/services/%d", pid), nil, &out)
	return out, err
}

// PolicyResult pairs a policy with whether the daemon tracks it.
type PolicyResult struct {
	Policy  policy.Policy `json:"policy"`
	Tracked bool          `json:"tracked"`
}

// Policy fetches the restart policy for pid.
func (c *Client) Policy(ctx context.Context, pid int32) (PolicyResult, error) {
	var out PolicyResult
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/services/%d/policy", pid), nil, &out)
	return out, err
}

// SetPolicy installs or updates the restart policy for pid.
func (c *Client) SetPolicy(ctx context.Context, pid int32, p policy.Policy) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/services/%d/policy", pid), p, nil)
}

// DeletePolicy drops the policy for pid.
func (c *Client) DeletePolicy(ctx context.Context, pid int32) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/services/%d/policy", pid), nil, nil)
}

// SetQueueThreshold arms or updates the queue trigger for pid.
func (c *Client) SetQueueThreshold(ctx context.Context, pid int32, threshold int64) error {
	body := map[string]int64{"queue_threshold": threshold}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/services/%d/queue-threshold", pid), body, nil)
}

// Restart asks the daemon to begin restarting pid. The daemon performs the
// stop/cooldown/start sequence asynchronously.
func (c *Client) Restart(ctx context.Context, pid int32) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/services/%d/restart", pid), nil, nil)
}

// Stop stops the process with the given pid.
func (c *Client) Stop(ctx context.Context, pid int32) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/services/%d/stop", pid), nil, nil)
}

// Start launches the named executable from the managed folder.
func (c *Client) Start(ctx context.Context, name string) (int32, error) {
	var out struct {
		PID int32 `json:"pid"`
	}
	err := c.do(ctx, http.MethodPost, "/services/start", map[string]string{"name": name}, &out)
	return out.PID, err
}

// Queues lists visible queues with their matched services.
func (c *Client) Queues(ctx context.Context) ([]engine.QueueView, error) {
	var out []engine.QueueView
	err := c.do(ctx, http.MethodGet, "/queues", nil, &out)
	return out, err
}

// Executables lists launchable files in the managed folder.
func (c *Client) Executables(ctx context.Context) ([]scanner.Executable, error) {
	var out []scanner.Executable
	err := c.do(ctx, http.MethodGet, "/executables", nil, &out)
	return out, err
}

// Folder returns the managed executables folder.
func (c *Client) Folder(ctx context.Context) (string, error) {
	var out struct {
		FolderPath string `json:"folder_path"`
	}
	err := c.do(ctx, http.MethodGet, "/folder", nil, &out)
	return out.FolderPath, err
}

// SetFolder sets the managed executables folder.
func (c *Client) SetFolder(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodPost, "/folder", map[string]string{"folder_path": path}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
