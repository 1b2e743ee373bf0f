// Package transform provides data transformation node implementation for workflow graph execution.
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/template"
)

const NodeType = "transform"

// TransformNode renders a template expression into a new output record.
type TransformNode struct {
	id         string
	expression string
}

// NewTransformNode creates a new data transformation node.
func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	expression, ok := config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	return &TransformNode{
		id:         id,
		expression: expression,
	}, nil
}

// ID returns the node ID.
func (n *TransformNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *TransformNode) Type() string {
	return NodeType
}

// Execute renders the expression. Object results are returned as the output
// record, any other value is wrapped under "result".
func (n *TransformNode) Execute(_ context.Context, input protocol.NodeInput) (map[string]any, error) {
	result, err := template.RenderWithScope(n.expression, template.Scope{
		ExecutionID: input.ExecutionID,
		NodeID:      n.id,
		Inputs:      input.Inputs,
		InitialData: input.InitialData,
	})
	if err != nil {
		return nil, fmt.Errorf("transformation failed: %w", err)
	}

	if record, ok := result.(map[string]any); ok {
		return record, nil
	}

	return map[string]any{"result": result}, nil
}
