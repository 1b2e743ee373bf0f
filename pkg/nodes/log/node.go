// Package log provides logging node implementation for workflow graph execution.
package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	applog "github.com/dukex/graphflow/pkg/log"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/template"
)

const NodeType = "log"

// LogLevel represents different logging levels.
type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
)

var logLevelName = map[LogLevel]string{
	Debug: "debug",
	Info:  "info",
	Warn:  "warn",
	Error: "error",
}

// LogNode logs a rendered message and passes its inputs through.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

// NewLogNode creates a new logging node.
func NewLogNode(id string, config map[string]any, logger *slog.Logger) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := logLevelName[Info]
	if lvl, ok := config["level"].(string); ok {
		level = lvl
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  logger,
	}, nil
}

// ID returns the node ID.
func (n *LogNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *LogNode) Type() string {
	return NodeType
}

// Execute performs the logging operation.
func (n *LogNode) Execute(ctx context.Context, input protocol.NodeInput) (map[string]any, error) {
	rendered, err := template.RenderWithScope(n.message, template.Scope{
		ExecutionID: input.ExecutionID,
		NodeID:      n.id,
		Inputs:      input.Inputs,
		InitialData: input.InitialData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render log message template: %w", err)
	}

	message := fmt.Sprintf("%v", rendered)

	// Workers put a job-scoped logger on the context.
	logger := applog.FromContext(ctx, n.logger).With("node_id", n.id, "node_type", NodeType, "execution_id", input.ExecutionID)

	switch n.level {
	case logLevelName[Debug]:
		logger.DebugContext(ctx, message)
	case logLevelName[Warn]:
		logger.WarnContext(ctx, message)
	case logLevelName[Error]:
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return map[string]any{
		"message": message,
		"level":   n.level,
		"logged":  true,
		"data":    maps.Clone(input.Inputs),
	}, nil
}
