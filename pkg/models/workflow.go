// Package models defines the core domain models for node-based workflow automation
package models

// Edge connects two nodes. Handles encode the port as "{nodeId}-{direction}-{portName}".
type Edge struct {
	ID           string `json:"id"                     validate:"required" yaml:"id"`
	Source       string `json:"source"                 validate:"required" yaml:"source"`
	Target       string `json:"target"                 validate:"required" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"                     yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"                     yaml:"targetHandle,omitempty"`
	IsTrigger    bool   `json:"isTrigger"                                  yaml:"isTrigger"`
	BranchName   string `json:"branchName,omitempty"                       yaml:"branchName,omitempty"`
}

// Graph is the immutable workflow document the engine compiles and runs.
type Graph struct {
	ID    string  `json:"id"    yaml:"id"`
	Name  string  `json:"name"  yaml:"name"`
	Nodes []*Node `json:"nodes" validate:"required,min=1,dive,required" yaml:"nodes"`
	Edges []*Edge `json:"edges" validate:"dive,required"                yaml:"edges"`
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// IncomingEdges returns edges targeting the node, in declaration order.
func (g *Graph) IncomingEdges(nodeID string) []*Edge {
	var edges []*Edge

	for _, edge := range g.Edges {
		if edge.Target == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// OutgoingEdges returns edges leaving the node, in declaration order.
func (g *Graph) OutgoingEdges(nodeID string) []*Edge {
	var edges []*Edge

	for _, edge := range g.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}
