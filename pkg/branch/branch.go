// Package branch decides whether a node's trigger preconditions hold.
package branch

import (
	"strings"

	"github.com/dukex/graphflow/pkg/models"
)

// ReasonBranchNotActive is reported when no trigger edge of a node is satisfied.
const ReasonBranchNotActive = "branch_not_active"

// Decision is the outcome of evaluating a node. Skipping is a normal result,
// never an error.
type Decision struct {
	Execute bool
	Reason  string
	// SatisfiedBy is the id of the first trigger edge that allowed execution.
	SatisfiedBy string
}

// GatewayOutputs maps gateway node id to its comma separated active branches.
type GatewayOutputs map[string]string

// Evaluate applies the trigger rule to nodeID. A node without incoming trigger
// edges always executes. Otherwise at least one trigger edge must be satisfied:
// edges from a gateway that already announced its branches need an empty
// branch name or a matching branch, other edges need their source executed.
func Evaluate(nodeID string, gatewayOutputs GatewayOutputs, edges models.EdgeIndex, executed map[string]bool) Decision {
	triggers := edges.TriggerEdges(nodeID)
	if len(triggers) == 0 {
		return Decision{Execute: true}
	}

	for _, edge := range triggers {
		if satisfied(edge, gatewayOutputs, executed) {
			return Decision{Execute: true, SatisfiedBy: edge.EdgeID}
		}
	}

	return Decision{Reason: ReasonBranchNotActive}
}

// ShouldExecute reports whether nodeID may run.
func ShouldExecute(nodeID string, gatewayOutputs GatewayOutputs, edges models.EdgeIndex, executed map[string]bool) bool {
	return Evaluate(nodeID, gatewayOutputs, edges, executed).Execute
}

func satisfied(edge models.EdgeMeta, gatewayOutputs GatewayOutputs, executed map[string]bool) bool {
	active, isGateway := gatewayOutputs[edge.Source]
	if !isGateway {
		return executed[edge.Source]
	}

	if edge.BranchName == "" {
		return true
	}

	return Matches(active, edge.BranchName)
}

// Matches reports whether branchName is one of the comma separated active
// branches, ignoring case and surrounding whitespace.
func Matches(activeBranches, branchName string) bool {
	want := strings.TrimSpace(branchName)

	for _, entry := range strings.Split(activeBranches, ",") {
		if strings.EqualFold(strings.TrimSpace(entry), want) {
			return true
		}
	}

	return false
}

// GatewayOutputFrom extracts the active branches a node output announces. The
// field may hold a string or a list of strings.
func GatewayOutputFrom(output map[string]any) (string, bool) {
	value, ok := output[models.ActiveBranchesKey]
	if !ok || value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, ","), true
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}

		return strings.Join(parts, ","), true
	default:
		return "", false
	}
}
