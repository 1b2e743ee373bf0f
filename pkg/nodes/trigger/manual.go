// Package trigger provides trigger node implementations for workflow graph execution.
package trigger

import (
	"context"
	"maps"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
)

// ManualTriggerNode starts a run from operator supplied initial data.
type ManualTriggerNode struct {
	id string
}

// NewManualTriggerNode creates a new manual trigger node.
func NewManualTriggerNode(id string, _ map[string]any) (*ManualTriggerNode, error) {
	return &ManualTriggerNode{id: id}, nil
}

// ID returns the node ID.
func (n *ManualTriggerNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *ManualTriggerNode) Type() string {
	return models.NodeTypeTriggerManual
}

// Execute passes the resolved inputs through unchanged.
func (n *ManualTriggerNode) Execute(_ context.Context, input protocol.NodeInput) (map[string]any, error) {
	return payload(input), nil
}

// payload returns a copy of the trigger's inputs, falling back to the initial data.
func payload(input protocol.NodeInput) map[string]any {
	if len(input.Inputs) > 0 {
		return maps.Clone(input.Inputs)
	}

	if input.InitialData != nil {
		return maps.Clone(input.InitialData)
	}

	return map[string]any{}
}
