package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edge Model Tests

func TestEdge_Validation_ValidEdge(t *testing.T) {
	edge := &Edge{
		ID:     "e1",
		Source: "node-1",
		Target: "node-2",
	}

	validate := validator.New()
	err := validate.Struct(edge)
	assert.NoError(t, err)
}

func TestEdge_Validation_MissingFields(t *testing.T) {
	testCases := []struct {
		name      string
		edge      *Edge
		fieldName string
	}{
		{
			name:      "missing id",
			edge:      &Edge{Source: "node-1", Target: "node-2"},
			fieldName: "ID",
		},
		{
			name:      "missing source",
			edge:      &Edge{ID: "e1", Target: "node-2"},
			fieldName: "Source",
		},
		{
			name:      "missing target",
			edge:      &Edge{ID: "e1", Source: "node-1"},
			fieldName: "Target",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			validate := validator.New()
			err := validate.Struct(tc.edge)
			require.Error(t, err)

			var validationErrors validator.ValidationErrors

			require.True(t, errors.As(err, &validationErrors))
			assert.Equal(t, tc.fieldName, validationErrors[0].Field())
		})
	}
}

func TestEdge_JSONHandles(t *testing.T) {
	original := &Edge{
		ID:           "e1",
		Source:       "a",
		Target:       "b",
		SourceHandle: MakeHandle("a", PortDirectionOutput, "result"),
		TargetHandle: MakeHandle("b", PortDirectionInput, "payload"),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sourceHandle":"a-output-result"`)
	assert.Contains(t, string(data), `"isTrigger":false`)
	assert.NotContains(t, string(data), "branchName")
}

// Node Model Tests

func TestNode_IsTrigger(t *testing.T) {
	tests := []struct {
		typeID string
		want   bool
	}{
		{typeID: NodeTypeTriggerManual, want: true},
		{typeID: NodeTypeTriggerWebhook, want: true},
		{typeID: NodeTypeTriggerScheduler, want: true},
		{typeID: NodeTypeGateway, want: false},
		{typeID: "log", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.typeID, func(t *testing.T) {
			node := &Node{ID: "n", TypeID: tt.typeID}
			assert.Equal(t, tt.want, node.IsTrigger())
		})
	}
}

func TestGraph_Validation_RequiresNodes(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(&Graph{ID: "empty"})
	require.Error(t, err)

	err = validate.Struct(&Graph{ID: "one", Nodes: []*Node{{ID: "a", TypeID: "log"}}})
	assert.NoError(t, err)
}

func TestGraph_NodeByID(t *testing.T) {
	graph := &Graph{Nodes: []*Node{{ID: "a", TypeID: "log"}, {ID: "b", TypeID: "log"}}}

	node, ok := graph.NodeByID("b")
	require.True(t, ok)
	assert.Equal(t, "b", node.ID)

	_, ok = graph.NodeByID("missing")
	assert.False(t, ok)
}
