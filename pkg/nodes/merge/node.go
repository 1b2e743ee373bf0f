// Package merge provides merge node implementation for joining multiple execution paths.
package merge

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/dukex/graphflow/pkg/dataflow"
	"github.com/dukex/graphflow/pkg/protocol"
)

const NodeType = "merge"

// MergeNode combines the records found under its input keys.
type MergeNode struct {
	id       string
	sources  []string
	strategy dataflow.Strategy
	resolver *dataflow.Resolver
}

// NewMergeNode creates a new merge node.
func NewMergeNode(id string, config map[string]any, resolver *dataflow.Resolver) (*MergeNode, error) {
	var sources []string

	if sourcesAny, ok := config["sources"].([]any); ok {
		for i, source := range sourcesAny {
			sourceStr, ok := source.(string)
			if !ok {
				return nil, fmt.Errorf("source %d must be a string", i)
			}

			sources = append(sources, sourceStr)
		}
	}

	strategy := dataflow.StrategyAppend
	if s, ok := config["strategy"].(string); ok && s != "" {
		strategy = dataflow.Strategy(s)
		if !strategy.Known() {
			return nil, fmt.Errorf("invalid strategy: %s (must be 'append', 'prepend', 'replace' or 'merge_nested')", s)
		}
	}

	return &MergeNode{
		id:       id,
		sources:  sources,
		strategy: strategy,
		resolver: resolver,
	}, nil
}

// ID returns the node ID.
func (n *MergeNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *MergeNode) Type() string {
	return NodeType
}

// Execute merges the configured input records.
func (n *MergeNode) Execute(_ context.Context, input protocol.NodeInput) (map[string]any, error) {
	keys := n.sources
	if len(keys) == 0 {
		keys = slices.Sorted(maps.Keys(input.Inputs))
	}

	records := make([]map[string]any, 0, len(keys))
	received := make([]string, 0, len(keys))

	for _, key := range keys {
		record, ok := input.Inputs[key].(map[string]any)
		if !ok {
			continue
		}

		records = append(records, record)
		received = append(received, key)
	}

	merged := n.resolver.Merge(n.strategy, records...)
	if len(records) == 0 {
		merged = maps.Clone(input.Inputs)
	}

	return map[string]any{
		"merged":          merged,
		"inputs_received": received,
		"strategy":        string(n.strategy),
	}, nil
}
