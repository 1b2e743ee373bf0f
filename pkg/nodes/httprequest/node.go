// Package httprequest provides HTTP request node implementation for workflow graph execution.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/template"
)

const NodeType = "httprequest"

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// HTTPRequestNode performs an HTTP request built from templated configuration.
type HTTPRequestNode struct {
	id     string
	config HTTPRequestConfig
	client *http.Client
}

// HTTPRequestConfig defines the configuration for HTTP request nodes.
type HTTPRequestConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
	Timeout int               `json:"timeout"`
	Retries RetryConfig       `json:"retries"`
}

// RetryConfig defines in-node retry behavior for HTTP requests.
type RetryConfig struct {
	Attempts int `json:"attempts"`
	Delay    int `json:"delay"`
}

// NewHTTPRequestNode creates a new HTTP request node.
func NewHTTPRequestNode(id string, config map[string]any) (*HTTPRequestNode, error) {
	httpConfig := HTTPRequestConfig{
		Method:  "GET",
		Headers: make(map[string]string),
		Timeout: 30,
		Retries: RetryConfig{Attempts: 1, Delay: 0},
	}

	url, ok := config["url"].(string)
	if !ok {
		return nil, errors.New("missing required field 'url'")
	}

	httpConfig.URL = url

	if method, ok := config["method"].(string); ok {
		httpConfig.Method = strings.ToUpper(method)
	}

	if !validMethods[httpConfig.Method] {
		return nil, fmt.Errorf("invalid HTTP method: %s", httpConfig.Method)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if strVal, ok := v.(string); ok {
				httpConfig.Headers[k] = strVal
			}
		}
	}

	if body, ok := config["body"].(string); ok {
		httpConfig.Body = body
	}

	if timeout, ok := toInt(config["timeout"]); ok {
		httpConfig.Timeout = timeout
	}

	if retries, ok := config["retries"].(map[string]any); ok {
		if attempts, ok := toInt(retries["attempts"]); ok && attempts > 0 {
			httpConfig.Retries.Attempts = attempts
		}

		if delay, ok := toInt(retries["delay"]); ok && delay >= 0 {
			httpConfig.Retries.Delay = delay
		}
	}

	return &HTTPRequestNode{
		id:     id,
		config: httpConfig,
		client: &http.Client{Timeout: time.Duration(httpConfig.Timeout) * time.Second},
	}, nil
}

// ID returns the node ID.
func (n *HTTPRequestNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *HTTPRequestNode) Type() string {
	return NodeType
}

// Execute performs the HTTP request.
func (n *HTTPRequestNode) Execute(ctx context.Context, input protocol.NodeInput) (map[string]any, error) {
	scope := template.Scope{
		ExecutionID: input.ExecutionID,
		NodeID:      n.id,
		Inputs:      input.Inputs,
		InitialData: input.InitialData,
	}

	renderedURL, err := template.RenderWithScope(n.config.URL, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to render URL template: %w", err)
	}

	urlStr, ok := renderedURL.(string)
	if !ok {
		return nil, fmt.Errorf("%w: URL template must render to string", protocol.ErrNonRetryable)
	}

	var body string

	if n.config.Body != "" {
		renderedBody, err := template.RenderWithScope(n.config.Body, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to render body template: %w", err)
		}

		body, err = bodyString(renderedBody)
		if err != nil {
			return nil, err
		}
	}

	headers := make(map[string]string, len(n.config.Headers))

	for key, value := range n.config.Headers {
		rendered, err := template.RenderWithScope(value, scope)
		if err != nil {
			headers[key] = value

			continue
		}

		headers[key] = fmt.Sprint(rendered)
	}

	var lastErr error

	for attempt := 1; attempt <= n.config.Retries.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(n.config.Retries.Delay) * time.Millisecond):
			}
		}

		result, err := n.performRequest(ctx, urlStr, body, headers)
		if err == nil {
			return result, nil
		}

		lastErr = err

		httpErr := &HTTPError{}
		if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %w", protocol.ErrNonRetryable, err)
		}
	}

	return nil, fmt.Errorf("HTTP request failed after %d attempts: %w", n.config.Retries.Attempts, lastErr)
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (n *HTTPRequestNode) performRequest(ctx context.Context, url, body string, headers map[string]string) (map[string]any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	responseHeaders := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		responseHeaders[key] = resp.Header.Get(key)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     responseHeaders,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}

// bodyString turns a rendered body back into wire text. Templates that render
// JSON come back decoded, so they are encoded again.
func bodyString(rendered any) (string, error) {
	if s, ok := rendered.(string); ok {
		return s, nil
	}

	encoded, err := json.Marshal(rendered)
	if err != nil {
		return "", fmt.Errorf("failed to encode body: %w", err)
	}

	return string(encoded), nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
