// Package log provides logging node factory for registry integration.
package log

import (
	"context"
	"log/slog"

	"github.com/dukex/graphflow/pkg/protocol"
)

// LogNodeFactory creates LogNode instances.
type LogNodeFactory struct {
	logger *slog.Logger
}

// Create creates a new LogNode instance.
func (f *LogNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewLogNode(id, config, f.logger)
}

// ID returns the factory ID.
func (f *LogNodeFactory) ID() string {
	return NodeType
}

// Name returns the factory name.
func (f *LogNodeFactory) Name() string {
	return "Log"
}

// Description returns the factory description.
func (f *LogNodeFactory) Description() string {
	return "Logs messages at different levels (debug, info, warn, error) with template support for dynamic content"
}

// Schema returns the JSON schema for Log node configuration.
func (f *LogNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating with .input, .initial and .execution.",
				"examples": []string{
					"Processing user: {{.input.user_name}}",
					"Run {{.execution.id}} reached {{.execution.node_id}}",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
			},
		},
		"required": []string{"message"},
	}
}

// NewLogNodeFactory creates a new factory instance.
func NewLogNodeFactory(logger *slog.Logger) protocol.NodeFactory {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogNodeFactory{logger: logger}
}
