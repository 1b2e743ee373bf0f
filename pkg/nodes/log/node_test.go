package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/dukex/graphflow/pkg/protocol"
)

func TestLogNode_Execute_Info(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	node, err := NewLogNode("test-log", map[string]any{
		"message": "Processing user: {{.input.user_name}}",
		"level":   "info",
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), protocol.NodeInput{
		ExecutionID: "exec-1",
		Inputs:      map[string]any{"user_name": "john_doe"},
	})
	if err != nil {
		t.Fatalf("Node execution failed: %v", err)
	}

	if output["message"] != "Processing user: john_doe" {
		t.Errorf("Expected 'Processing user: john_doe', got: %v", output["message"])
	}

	if output["level"] != "info" {
		t.Errorf("Expected level 'info', got: %v", output["level"])
	}

	if !strings.Contains(buf.String(), "level=INFO") || !strings.Contains(buf.String(), "john_doe") {
		t.Errorf("Expected info log line, got: %s", buf.String())
	}
}

func TestLogNode_Execute_Levels(t *testing.T) {
	for _, level := range []string{"debug", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer

			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			node, err := NewLogNode("n", map[string]any{"message": "hello", "level": level}, logger)
			if err != nil {
				t.Fatalf("Failed to create node: %v", err)
			}

			if _, err := node.Execute(context.Background(), protocol.NodeInput{}); err != nil {
				t.Fatalf("Node execution failed: %v", err)
			}

			if !strings.Contains(buf.String(), "level="+strings.ToUpper(level)) {
				t.Errorf("Expected %s log line, got: %s", level, buf.String())
			}
		})
	}
}

func TestNewLogNode_MissingMessage(t *testing.T) {
	_, err := NewLogNode("n", map[string]any{"level": "info"}, slog.Default())
	if err == nil {
		t.Fatal("Expected error when message is missing")
	}
}
