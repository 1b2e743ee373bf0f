package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualTrigger_PassesInputsThrough(t *testing.T) {
	node, err := NewManualTriggerNode("start", nil)
	require.NoError(t, err)
	assert.Equal(t, models.NodeTypeTriggerManual, node.Type())

	inputs := map[string]any{"order_id": "o-1"}

	output, err := node.Execute(context.Background(), protocol.NodeInput{Inputs: inputs})
	require.NoError(t, err)
	assert.Equal(t, inputs, output)

	output["order_id"] = "changed"
	assert.Equal(t, "o-1", inputs["order_id"])
}

func TestManualTrigger_FallsBackToInitialData(t *testing.T) {
	node, err := NewManualTriggerNode("start", nil)
	require.NoError(t, err)

	output, err := node.Execute(context.Background(), protocol.NodeInput{InitialData: map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, output)

	output, err = node.Execute(context.Background(), protocol.NodeInput{})
	require.NoError(t, err)
	assert.NotNil(t, output)
}

func TestWebhookTrigger(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		inputs  map[string]any
		wantErr bool
	}{
		{
			name:   "no required fields",
			config: map[string]any{"webhook_path": "/orders"},
			inputs: map[string]any{"body": "x"},
		},
		{
			name:   "required fields present",
			config: map[string]any{"required_fields": []any{"body", "method"}},
			inputs: map[string]any{"body": "x", "method": "POST"},
		},
		{
			name:    "required field missing",
			config:  map[string]any{"required_fields": []any{"body"}},
			inputs:  map[string]any{"method": "POST"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewWebhookTriggerNode("hook", tt.config)
			require.NoError(t, err)

			output, err := node.Execute(context.Background(), protocol.NodeInput{Inputs: tt.inputs})
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.inputs, output)
		})
	}
}

func TestWebhookTrigger_InvalidMethod(t *testing.T) {
	_, err := NewWebhookTriggerNode("hook", map[string]any{"method": "TRACE"})
	require.Error(t, err)
}

func TestSchedulerTrigger(t *testing.T) {
	node, err := NewSchedulerTriggerNode("cron", map[string]any{"cron_expression": "0 * * * *"})
	require.NoError(t, err)

	node.now = func() time.Time { return time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC) }

	output, err := node.Execute(context.Background(), protocol.NodeInput{Inputs: map[string]any{"k": "v"}})
	require.NoError(t, err)

	assert.Equal(t, "v", output["k"])
	assert.Equal(t, "2024-01-01T10:30:00Z", output["fired_at"])
	assert.Equal(t, "2024-01-01T11:00:00Z", output["next_run_at"])
}

func TestSchedulerTrigger_InvalidConfig(t *testing.T) {
	_, err := NewSchedulerTriggerNode("cron", map[string]any{})
	require.Error(t, err)

	_, err = NewSchedulerTriggerNode("cron", map[string]any{"cron_expression": "not a cron"})
	require.Error(t, err)

	_, err = NewSchedulerTriggerNode("cron", map[string]any{"cron_expression": "@daily", "timezone": "Mars/Olympus"})
	require.Error(t, err)
}
