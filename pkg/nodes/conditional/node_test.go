package conditional

import (
	"context"
	"testing"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConditionalNode_MissingCondition(t *testing.T) {
	_, err := NewConditionalNode("c", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, "missing required field 'condition'", err.Error())
}

func TestConditionalNode_Execute(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		inputs    map[string]any
		branch    string
	}{
		{name: "literal true", condition: "true", branch: BranchTrue},
		{name: "literal false", condition: "false", branch: BranchFalse},
		{name: "comparison", condition: `{{eq .input.status "active"}}`, inputs: map[string]any{"status": "active"}, branch: BranchTrue},
		{name: "comparison miss", condition: `{{eq .input.status "active"}}`, inputs: map[string]any{"status": "idle"}, branch: BranchFalse},
		{name: "non-zero number", condition: `{{.input.count}}`, inputs: map[string]any{"count": 3}, branch: BranchTrue},
		{name: "zero number", condition: `{{.input.count}}`, inputs: map[string]any{"count": 0}, branch: BranchFalse},
		{name: "non-empty string", condition: "yes please", branch: BranchTrue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewConditionalNode("c", map[string]any{"condition": tt.condition})
			require.NoError(t, err)

			output, err := node.Execute(context.Background(), protocol.NodeInput{Inputs: tt.inputs})
			require.NoError(t, err)

			assert.Equal(t, tt.branch, output[models.ActiveBranchesKey])
			assert.Equal(t, tt.branch == BranchTrue, output["condition_result"])
		})
	}
}

func TestConditionalNode_Execute_EvaluationError(t *testing.T) {
	node, err := NewConditionalNode("c", map[string]any{"condition": "{{ nope.x }}"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.NodeInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition evaluation failed")
}
