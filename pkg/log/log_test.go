package log

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestFromContext(t *testing.T) {
	fallback := slog.Default()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	logger := slog.New(slog.DiscardHandler)
	ctx := ContextWithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx, fallback))
}
