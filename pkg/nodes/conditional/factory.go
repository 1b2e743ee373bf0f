// Package conditional provides conditional branching node factory for registry integration.
package conditional

import (
	"context"

	"github.com/dukex/graphflow/pkg/protocol"
)

// ConditionalNodeFactory creates ConditionalNode instances.
type ConditionalNodeFactory struct{}

// Create creates a new ConditionalNode instance.
func (f *ConditionalNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewConditionalNode(id, config)
}

// ID returns the factory ID.
func (f *ConditionalNodeFactory) ID() string {
	return NodeType
}

// Name returns the factory name.
func (f *ConditionalNodeFactory) Name() string {
	return "Conditional"
}

// Description returns the factory description.
func (f *ConditionalNodeFactory) Description() string {
	return "Evaluates a condition and activates the true or false branch."
}

// Schema returns the JSON schema for Conditional node configuration.
func (f *ConditionalNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Condition expression to evaluate. Supports templating and various data types.",
				"examples": []string{
					`{{eq .input.status "active"}}`,
					`{{gt .input.count 10.0}}`,
					`{{and .initial.enabled (ne .initial.mode "test")}}`,
					`true`,
				},
			},
		},
		"required": []string{"condition"},
	}
}

// NewConditionalNodeFactory creates a new factory instance.
func NewConditionalNodeFactory() protocol.NodeFactory {
	return &ConditionalNodeFactory{}
}
