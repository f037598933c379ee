package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hairizuan-noorazman/phone-patrol/logger"
)

// Client implements the Agent interface over the phone agent's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	modelName  string
	apiKey     string
	logger     logger.Logger
}

// NewClient creates a phone agent client from the resolved model config.
// Per-call deadlines come from the caller's context, so the underlying HTTP
// client carries no timeout of its own.
func NewClient(cfg ModelConfig, log logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		modelName:  cfg.ModelName,
		apiKey:     cfg.APIKey,
		logger:     log,
	}, nil
}

type runRequest struct {
	Model string `json:"model"`
	Request
}

// Run executes one instruction on the device. The agent receives the
// instruction and the success criteria in a single briefing and judges the
// outcome itself.
func (c *Client) Run(ctx context.Context, req Request) (*Result, error) {
	c.logger.Debug(ctx, "dispatching task to phone agent", logger.Fields{
		"instruction_len": len(req.Instruction),
		"device_id":       req.DeviceID,
	})

	var result Result
	if err := c.post(ctx, "/agent/run", runRequest{Model: c.modelName, Request: req}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reset clears the agent's conversation state.
func (c *Client) Reset(ctx context.Context) error {
	return c.post(ctx, "/agent/reset", struct{}{}, nil)
}

// CurrentApp reports the app currently in the device foreground.
func (c *Client) CurrentApp(ctx context.Context, deviceID string) (string, error) {
	query := url.Values{}
	if deviceID != "" {
		query.Set("device_id", deviceID)
	}

	var resp struct {
		App string `json:"app"`
	}
	if err := c.get(ctx, "/device/current_app", query, &resp); err != nil {
		return "", err
	}
	return resp.App, nil
}

// Home returns the device to the home screen.
func (c *Client) Home(ctx context.Context, deviceID string) error {
	body := struct {
		DeviceID string `json:"device_id,omitempty"`
	}{DeviceID: deviceID}
	return c.post(ctx, "/device/home", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("agent: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("agent: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("agent: failed to create request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Surface the context error directly so callers can distinguish a
		// task timeout from an unreachable agent.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("agent: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("agent: %s %s returned %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, excerpt(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("agent: failed to parse response: %w", err)
		}
	}
	return nil
}

func excerpt(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
