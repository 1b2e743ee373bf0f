// Package merge provides merge node factory for registry integration.
package merge

import (
	"context"
	"log/slog"

	"github.com/dukex/graphflow/pkg/dataflow"
	"github.com/dukex/graphflow/pkg/protocol"
)

// MergeNodeFactory creates MergeNode instances.
type MergeNodeFactory struct {
	resolver *dataflow.Resolver
}

// Create creates a new MergeNode instance.
func (f *MergeNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewMergeNode(id, config, f.resolver)
}

// ID returns the factory ID.
func (f *MergeNodeFactory) ID() string {
	return NodeType
}

// Name returns the factory name.
func (f *MergeNodeFactory) Name() string {
	return "Merge"
}

// Description returns the factory description.
func (f *MergeNodeFactory) Description() string {
	return "Joins several branches into one record, combining their data with a merge strategy"
}

// Schema returns the JSON schema for Merge node configuration.
func (f *MergeNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sources": map[string]any{
				"type":        "array",
				"description": "Input keys holding the records to merge, in merge order. Defaults to every object-valued input in key order.",
				"items": map[string]any{
					"type": "string",
				},
				"examples": [][]string{
					{"user", "permissions"},
				},
			},
			"strategy": map[string]any{
				"type":        "string",
				"description": "How colliding keys are combined",
				"enum":        []string{"append", "prepend", "replace", "merge_nested"},
				"default":     "append",
			},
		},
	}
}

// NewMergeNodeFactory creates a new factory instance.
func NewMergeNodeFactory(logger *slog.Logger) protocol.NodeFactory {
	return &MergeNodeFactory{resolver: dataflow.NewResolver(logger)}
}
