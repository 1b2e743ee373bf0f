// Package transform provides data transformation node factory for registry integration.
package transform

import (
	"context"

	"github.com/dukex/graphflow/pkg/protocol"
)

// TransformNodeFactory creates TransformNode instances.
type TransformNodeFactory struct{}

// Create creates a new TransformNode instance.
func (f *TransformNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewTransformNode(id, config)
}

// ID returns the factory ID.
func (f *TransformNodeFactory) ID() string {
	return NodeType
}

// Name returns the factory name.
func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

// Description returns the factory description.
func (f *TransformNodeFactory) Description() string {
	return "Transforms data using Go templates with access to resolved inputs, initial data and execution metadata"
}

// Schema returns the JSON schema for Transform node configuration.
func (f *TransformNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Go template rendered against .input, .initial and .execution. JSON object results become the node output.",
				"examples": []string{
					`{"full_name": "{{.input.first}} {{.input.last}}"}`,
					"{{.input.price}}",
				},
			},
		},
		"required": []string{"expression"},
	}
}

// NewTransformNodeFactory creates a new factory instance.
func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}
