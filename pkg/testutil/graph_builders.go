// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a log node with default values that can be overridden.
func CreateTestNode(id string, overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:     id,
		TypeID: "log",
		Label:  "Test " + id,
		Config: map[string]any{"message": "test", "level": "info"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithType sets the node type.
func WithType(typeID string) func(*models.Node) {
	return func(n *models.Node) {
		n.TypeID = typeID
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// WithPriority sets the dispatch priority override of the node.
func WithPriority(priority int) func(*models.Node) {
	return func(n *models.Node) {
		if n.Config == nil {
			n.Config = make(map[string]any)
		}

		n.Config["priority"] = priority
	}
}

// WithManualTrigger turns the node into a manual trigger.
func WithManualTrigger() func(*models.Node) {
	return func(n *models.Node) {
		n.TypeID = models.NodeTypeTriggerManual
		n.Config = map[string]any{}
	}
}

// CreateTestEdge creates a data edge between two nodes.
func CreateTestEdge(source, target string, overrides ...func(*models.Edge)) *models.Edge {
	edge := &models.Edge{
		ID:     fmt.Sprintf("%s->%s", source, target),
		Source: source,
		Target: target,
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// AsTrigger marks the edge as a control-only trigger edge.
func AsTrigger() func(*models.Edge) {
	return func(e *models.Edge) {
		e.IsTrigger = true
	}
}

// OnBranch restricts the edge to a gateway branch.
func OnBranch(name string) func(*models.Edge) {
	return func(e *models.Edge) {
		e.BranchName = name
	}
}

// WithPorts wires the edge between named output and input ports.
func WithPorts(sourcePort, targetPort string) func(*models.Edge) {
	return func(e *models.Edge) {
		e.SourceHandle = models.MakeHandle(e.Source, models.PortDirectionOutput, sourcePort)
		e.TargetHandle = models.MakeHandle(e.Target, models.PortDirectionInput, targetPort)
	}
}

// CreateTestGraph creates a graph with a random id.
func CreateTestGraph(nodes []*models.Node, edges ...*models.Edge) *models.Graph {
	return &models.Graph{
		ID:    uuid.New().String(),
		Name:  "Test Graph",
		Nodes: nodes,
		Edges: edges,
	}
}

// CreateTestChain creates a graph of log nodes linked one after another.
func CreateTestChain(ids ...string) *models.Graph {
	nodes := make([]*models.Node, 0, len(ids))
	edges := make([]*models.Edge, 0, len(ids))

	for i, id := range ids {
		nodes = append(nodes, CreateTestNode(id))

		if i > 0 {
			edges = append(edges, CreateTestEdge(ids[i-1], id))
		}
	}

	return CreateTestGraph(nodes, edges...)
}
