package models

import (
	"errors"
	"fmt"
	"maps"
)

// ErrOutputAlreadyRecorded is returned when a node output is stored twice in one run.
var ErrOutputAlreadyRecorded = errors.New("node output already recorded")

// ExecutionContext is the mutable per-run store of node outputs. It is owned by
// exactly one run and never shared between concurrent runs.
type ExecutionContext struct {
	ID          string                    `json:"id"`
	InitialData map[string]any            `json:"initial_data,omitempty"`
	NodeOutputs map[string]map[string]any `json:"node_outputs,omitempty"`
}

// NewExecutionContext creates an empty context for one run.
func NewExecutionContext(id string, initialData map[string]any) *ExecutionContext {
	if initialData == nil {
		initialData = make(map[string]any)
	}

	return &ExecutionContext{
		ID:          id,
		InitialData: initialData,
		NodeOutputs: make(map[string]map[string]any),
	}
}

// StoreOutput records the output of a node. Outputs are append-only.
func (c *ExecutionContext) StoreOutput(nodeID string, output map[string]any) error {
	if _, exists := c.NodeOutputs[nodeID]; exists {
		return fmt.Errorf("%w: %s", ErrOutputAlreadyRecorded, nodeID)
	}

	if output == nil {
		output = make(map[string]any)
	}

	c.NodeOutputs[nodeID] = output

	return nil
}

// Output returns the recorded output of a node.
func (c *ExecutionContext) Output(nodeID string) (map[string]any, bool) {
	output, ok := c.NodeOutputs[nodeID]

	return output, ok
}

// Snapshot returns a shallow copy of all recorded outputs.
func (c *ExecutionContext) Snapshot() map[string]map[string]any {
	return maps.Clone(c.NodeOutputs)
}
