// Package switchnode provides the multi-way gateway node.
package switchnode

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/template"
)

const (
	NodeType      = "switch"
	BranchDefault = "default"
)

// SwitchNode routes execution to the branch whose case value matches.
type SwitchNode struct {
	id            string
	value         string            // Expression to evaluate
	cases         map[string]string // case_value -> branch
	defaultBranch string
}

// NewSwitchNode creates a new switch node.
func NewSwitchNode(id string, config map[string]any) (*SwitchNode, error) {
	value, ok := config["value"].(string)
	if !ok {
		return nil, errors.New("missing required field 'value'")
	}

	cases := make(map[string]string)

	if casesConfig, ok := config["cases"].([]any); ok {
		for i, caseAny := range casesConfig {
			caseMap, ok := caseAny.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("case %d must be an object", i)
			}

			caseValue, ok := caseMap["value"].(string)
			if !ok {
				return nil, fmt.Errorf("case %d missing 'value'", i)
			}

			branch, ok := caseMap["branch"].(string)
			if !ok {
				return nil, fmt.Errorf("case %d missing 'branch'", i)
			}

			cases[caseValue] = branch
		}
	}

	defaultBranch := BranchDefault
	if branch, ok := config["default_branch"].(string); ok && branch != "" {
		defaultBranch = branch
	}

	return &SwitchNode{
		id:            id,
		value:         value,
		cases:         cases,
		defaultBranch: defaultBranch,
	}, nil
}

// ID returns the node ID.
func (n *SwitchNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *SwitchNode) Type() string {
	return NodeType
}

// Execute evaluates the value and announces the matching branch as active.
func (n *SwitchNode) Execute(_ context.Context, input protocol.NodeInput) (map[string]any, error) {
	result, err := template.RenderWithScope(n.value, template.Scope{
		ExecutionID: input.ExecutionID,
		NodeID:      n.id,
		Inputs:      input.Inputs,
		InitialData: input.InitialData,
	})
	if err != nil {
		return nil, fmt.Errorf("value evaluation failed: %w", err)
	}

	valueStr := fmt.Sprintf("%v", result)

	branch, matched := n.cases[valueStr]
	if !matched {
		branch = n.defaultBranch
	}

	return map[string]any{
		"matched_value":           valueStr,
		"no_match":                !matched,
		"data":                    maps.Clone(input.Inputs),
		models.ActiveBranchesKey: branch,
	}, nil
}
