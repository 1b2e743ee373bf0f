// Package models defines core node-based workflow models for graph execution
package models

import (
	"strings"
	"time"
)

// Built-in node types.
const (
	NodeTypeTriggerManual    = "trigger:manual"
	NodeTypeTriggerWebhook   = "trigger:webhook"
	NodeTypeTriggerScheduler = "trigger:scheduler"
	NodeTypeGateway          = "gateway"
)

// ActiveBranchesKey is the output field a gateway node uses to announce which
// of its branches are active. The value is a comma-separated list of labels.
const ActiveBranchesKey = "activeBranches"

// Position is the editor position of a node. The engine never reads it.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Node represents a node instance in a graph.
type Node struct {
	ID       string         `json:"id"                 validate:"required" yaml:"id"`
	TypeID   string         `json:"typeId"             validate:"required" yaml:"typeId"`
	Label    string         `json:"label"                                  yaml:"label"`
	Config   map[string]any `json:"config"                                 yaml:"config"`
	Position *Position      `json:"position,omitempty"                     yaml:"position,omitempty"`
}

// IsTrigger reports whether the node type is a trigger type.
func (n *Node) IsTrigger() bool {
	return strings.HasPrefix(n.TypeID, "trigger")
}

// NodeStatus is the outcome of one node in a synchronous run.
type NodeStatus string

const (
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusSkipped NodeStatus = "skipped"
	NodeStatusError   NodeStatus = "error"
)

// ExecuteRequest is what a node executor receives for a single invocation.
type ExecuteRequest struct {
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	ExecutorID  string         `json:"executor_id"`
	Inputs      map[string]any `json:"inputs"`
	Config      map[string]any `json:"config"`
	InitialData map[string]any `json:"initial_data,omitempty"`
	Attempt     int            `json:"attempt"`
}

// ExecuteResult is the output of a single node invocation.
type ExecuteResult struct {
	Output          map[string]any `json:"output"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
}

// NodeResult is one entry of a synchronous run timeline.
type NodeResult struct {
	NodeID    string         `json:"node_id"`
	Data      map[string]any `json:"data"`
	Status    NodeStatus     `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}
