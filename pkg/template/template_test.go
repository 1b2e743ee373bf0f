package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"name":  "John",
		"age":   30,
		"isNew": true,
	}

	result, err := Render("{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "John", result)

	result, err = Render("{{ .isNew }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	// numbers always come back as float64
	result, err = Render("{{ .age }}", data)
	require.NoError(t, err)
	assert.Equal(t, 30.0, result)
}

func TestRender_ObjectConstruction(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"name":  "Alice",
			"email": "alice@example.com",
		},
		"orders": []any{
			map[string]any{"id": 1, "total": 100.50},
			map[string]any{"id": 2, "total": 75.25},
		},
	}

	result, err := Render(`{
		"user_name": "{{ .user.name }}",
		"total_orders": {{ len .orders }}
	}`, data)
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)

	require.True(t, ok)
	assert.Equal(t, "Alice", resultMap["user_name"])
	assert.Equal(t, 2.0, resultMap["total_orders"])
}

func TestRender_ErrorHandling(t *testing.T) {
	data := map[string]any{
		"test": "value",
	}

	_, err := Render("{ invalid..expression }}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")

	_, err = Render("{{ nonexistent.field }}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function \"nonexistent\" not defined")
}

func TestRender_Helpers(t *testing.T) {
	data := map[string]any{"tags": []string{"a", "b"}, "name": "Bob"}

	result, err := Render(`{{ json .tags }}`, data)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, result)

	result, err = Render(`{{ upper .name }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "BOB", result)
}

func TestRenderWithScope(t *testing.T) {
	t.Setenv("GRAPHFLOW_TEST_VAR", "from-env")

	scope := Scope{
		ExecutionID: "exec-1",
		NodeID:      "n1",
		Inputs:      map[string]any{"status": "approve"},
		InitialData: map[string]any{"user": "ana"},
	}

	tests := []struct {
		name     string
		template string
		expected any
	}{
		{"input", "{{ .input.status }}", "approve"},
		{"initial", "{{ .initial.user }}", "ana"},
		{"env", "{{ .env.GRAPHFLOW_TEST_VAR }}", "from-env"},
		{"execution", "{{ .execution.id }}/{{ .execution.node_id }}", "exec-1/n1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderWithScope(tt.template, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
