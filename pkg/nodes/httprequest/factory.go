// Package httprequest provides HTTP request node factory for the registry system.
package httprequest

import (
	"context"

	"github.com/dukex/graphflow/pkg/protocol"
)

// HTTPRequestNodeFactory creates HTTPRequestNode instances.
type HTTPRequestNodeFactory struct{}

// NewHTTPRequestNodeFactory creates a new HTTP request node factory.
func NewHTTPRequestNodeFactory() protocol.NodeFactory {
	return &HTTPRequestNodeFactory{}
}

// Create creates a new HTTPRequestNode instance.
func (f *HTTPRequestNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewHTTPRequestNode(id, config)
}

// ID returns the factory ID.
func (f *HTTPRequestNodeFactory) ID() string {
	return NodeType
}

// Name returns the factory name.
func (f *HTTPRequestNodeFactory) Name() string {
	return "HTTP Request"
}

// Description returns the factory description.
func (f *HTTPRequestNodeFactory) Description() string {
	return "Performs HTTP requests with in-node retries; client errors fail the node without pipeline retries"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *HTTPRequestNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": templated("Target URL", "{{.input.callback_url}}", "https://{{.env.API_HOST}}/orders/{{.initial.order_id}}"),
			"method": map[string]any{
				"type":    "string",
				"default": "GET",
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"description":          "Request headers; values are templates",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body":    templated("Request body", `{{json .input}}`),
			"timeout": bounded("Per-attempt timeout in seconds", 30, 1, 300),
			"retries": map[string]any{
				"type":        "object",
				"description": "In-node attempts for 5xx and transport errors. 4xx responses fail the job without pipeline retries.",
				"properties": map[string]any{
					"attempts": bounded("Attempts including the first request", 1, 1, 10),
					"delay":    bounded("Delay between attempts in milliseconds", 1000, 0, 30000),
				},
			},
		},
		"required": []string{"url"},
		"examples": []map[string]any{
			{
				"url":     "{{.input.callback_url}}",
				"method":  "POST",
				"headers": map[string]string{"Content-Type": "application/json"},
				"body":    `{"pipeline": "{{.execution.id}}", "result": {{json .input}}}`,
				"retries": map[string]any{"attempts": 3, "delay": 500},
			},
		},
	}
}

func templated(description string, examples ...string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description + ". Rendered with .input, .initial, .execution and .env",
		"examples":    examples,
	}
}

func bounded(description string, def, minimum, maximum int) map[string]any {
	return map[string]any{
		"type":        "number",
		"description": description,
		"default":     def,
		"minimum":     minimum,
		"maximum":     maximum,
	}
}
