package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pithecene-io/plandesk/iox"
	"github.com/pithecene-io/plandesk/types"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the service root; "/api" is appended (required).
	BaseURL string
	// Token is the bearer token; empty sends no Authorization header.
	Token string
	// Headers are static headers added to every request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
	// HTTPClient overrides the underlying client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client implements Service over HTTP.
type Client struct {
	base    *url.URL
	token   string
	headers map[string]string
	http    *http.Client
}

// NewClient creates a client from the given config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("service client requires a base URL")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/api")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0, got %s", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		base:    base,
		token:   cfg.Token,
		headers: cfg.Headers,
		http:    hc,
	}, nil
}

// Submit posts a message. The session id is omitted on the first submission.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal submit request: %w", err)
	}

	data, err := c.do(ctx, OpSubmit, http.MethodPost, "Chat", nil, body)
	if err != nil {
		return nil, err
	}

	var resp SubmitResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	if resp.SessionID == "" || resp.QueryID == "" {
		return nil, ErrMissingIdentity
	}
	return &resp, nil
}

// Status fetches the status token of a query.
func (c *Client) Status(ctx context.Context, key types.QueryKey) (types.QueryStatus, error) {
	data, err := c.do(ctx, OpStatus, http.MethodGet, "Chat/QueryStatus", keyQuery(key), nil)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	status, ok := types.ParseQueryStatus(token)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, token)
	}
	return status, nil
}

// Dialog fetches the session transcript.
func (c *Client) Dialog(ctx context.Context, sessionID string) (string, error) {
	data, err := c.do(ctx, OpDialog, http.MethodGet, "Chat/Dialog", url.Values{"sessionId": {sessionID}}, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Inputs fetches the structured inputs of a query.
func (c *Client) Inputs(ctx context.Context, key types.QueryKey) (map[string]any, error) {
	data, err := c.do(ctx, OpInputs, http.MethodGet, "Chat/RetirementCalculatorInputs", keyQuery(key), nil)
	if err != nil {
		return nil, err
	}
	var inputs map[string]any
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	return inputs, nil
}

// Chart fetches one chart image.
func (c *Client) Chart(ctx context.Context, key types.QueryKey, kind types.ChartKind) ([]byte, error) {
	q := keyQuery(key)
	q.Set("chartType", string(kind))
	return c.do(ctx, OpChart, http.MethodGet, "Chat/Chart", q, nil)
}

// DetailReport fetches the detail report markup.
func (c *Client) DetailReport(ctx context.Context, key types.QueryKey) ([]byte, error) {
	return c.do(ctx, OpDetailReport, http.MethodGet, "Chat/FlowsTable", keyQuery(key), nil)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, op Op, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer iox.DiscardClose(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func keyQuery(key types.QueryKey) url.Values {
	return url.Values{
		"sessionId": {key.SessionID},
		"queryId":   {key.QueryID},
	}
}

// Verify Client implements Service.
var _ Service = (*Client)(nil)
