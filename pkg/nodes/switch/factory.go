// Package switchnode provides switch node factory for registry integration.
package switchnode

import (
	"context"

	"github.com/dukex/graphflow/pkg/protocol"
)

// SwitchNodeFactory creates SwitchNode instances.
type SwitchNodeFactory struct{}

// Create creates a new SwitchNode instance.
func (f *SwitchNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSwitchNode(id, config)
}

// ID returns the factory ID.
func (f *SwitchNodeFactory) ID() string {
	return NodeType
}

// Name returns the factory name.
func (f *SwitchNodeFactory) Name() string {
	return "Switch"
}

// Description returns the factory description.
func (f *SwitchNodeFactory) Description() string {
	return "Gateway node that activates the branch whose case matches the evaluated value"
}

// Schema returns the JSON schema for Switch node configuration.
func (f *SwitchNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{
				"type":        "string",
				"description": "Expression to evaluate for switch routing. Supports templating.",
				"examples": []string{
					`{{.input.status}}`,
					`{{.initial.environment}}`,
				},
			},
			"cases": map[string]any{
				"type":        "array",
				"description": "Case objects mapping a value to the branch it activates",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"value": map[string]any{
							"type":        "string",
							"description": "Value to match against the evaluated expression",
						},
						"branch": map[string]any{
							"type":        "string",
							"description": "Branch label activated when this value matches",
						},
					},
					"required": []string{"value", "branch"},
				},
			},
			"default_branch": map[string]any{
				"type":        "string",
				"description": "Branch activated when no case matches",
				"default":     BranchDefault,
			},
		},
		"required": []string{"value"},
		"examples": []map[string]any{
			{
				"value": `{{.input.decision}}`,
				"cases": []map[string]any{
					{"value": "approve", "branch": "approve"},
					{"value": "reject", "branch": "reject"},
				},
			},
		},
	}
}

// NewSwitchNodeFactory creates a new factory instance.
func NewSwitchNodeFactory() protocol.NodeFactory {
	return &SwitchNodeFactory{}
}
