// Package conditional provides the two-way gateway node.
package conditional

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/template"
)

const (
	NodeType    = "conditional"
	BranchTrue  = "true"
	BranchFalse = "false"
)

// ConditionalNode evaluates a condition and activates the matching branch.
type ConditionalNode struct {
	id        string
	condition string
}

// NewConditionalNode creates a new conditional branching node.
func NewConditionalNode(id string, config map[string]any) (*ConditionalNode, error) {
	condition, ok := config["condition"].(string)
	if !ok {
		return nil, errors.New("missing required field 'condition'")
	}

	return &ConditionalNode{
		id:        id,
		condition: condition,
	}, nil
}

// ID returns the node ID.
func (n *ConditionalNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *ConditionalNode) Type() string {
	return NodeType
}

// Execute evaluates the condition and reports the true or false branch as active.
func (n *ConditionalNode) Execute(_ context.Context, input protocol.NodeInput) (map[string]any, error) {
	result, err := template.RenderWithScope(n.condition, template.Scope{
		ExecutionID: input.ExecutionID,
		NodeID:      n.id,
		Inputs:      input.Inputs,
		InitialData: input.InitialData,
	})
	if err != nil {
		return nil, fmt.Errorf("condition evaluation failed: %w", err)
	}

	isTrue := evaluateCondition(result)

	branch := BranchFalse
	if isTrue {
		branch = BranchTrue
	}

	return map[string]any{
		"condition_result":        isTrue,
		"evaluated_value":         result,
		"data":                    maps.Clone(input.Inputs),
		models.ActiveBranchesKey: branch,
	}, nil
}

// evaluateCondition converts various types to boolean.
func evaluateCondition(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		// Non-empty strings are truthy
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0.0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return false
	}
}
