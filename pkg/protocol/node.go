// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"context"
)

// NodeInput is what a node receives for one invocation.
type NodeInput struct {
	ExecutionID string
	NodeID      string
	// Inputs is the record resolved from upstream outputs.
	Inputs map[string]any
	// InitialData is the data the run was started with.
	InitialData map[string]any
	Attempt     int
}

// Node is a configured node instance ready to execute.
type Node interface {
	ID() string
	Type() string
	Execute(ctx context.Context, input NodeInput) (map[string]any, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node instance with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the unique identifier for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}

// Descriptor is the compile-time view of a resolved node type.
type Descriptor struct {
	ExecutorID string
	Schema     map[string]any
}
