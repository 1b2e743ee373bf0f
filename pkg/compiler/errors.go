package compiler

import (
	"fmt"
	"strings"
)

// ErrorKind classifies why a graph failed to compile.
type ErrorKind string

const (
	KindMalformedGraph  ErrorKind = "malformed_graph"
	KindMalformedEdge   ErrorKind = "malformed_edge"
	KindCyclicGraph     ErrorKind = "cyclic_graph"
	KindUnknownExecutor ErrorKind = "unknown_executor"
	KindInvalidConfig   ErrorKind = "invalid_config"
)

// CompileError names the node or edge that kept a graph from compiling.
type CompileError struct {
	Kind    ErrorKind
	GraphID string
	NodeID  string
	EdgeID  string
	Err     error
}

func (e *CompileError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "compile %s", e.Kind)

	if e.NodeID != "" {
		fmt.Fprintf(&b, " node %s", e.NodeID)
	}

	if e.EdgeID != "" {
		fmt.Fprintf(&b, " edge %s", e.EdgeID)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// CyclicGraphError reports a dependency cycle. Cycle lists its members in edge
// order starting at NodeID.
type CyclicGraphError struct {
	NodeID string
	Cycle  []string
}

func (e *CyclicGraphError) Error() string {
	path := append(append([]string{}, e.Cycle...), e.NodeID)

	return "cycle detected: " + strings.Join(path, " -> ")
}
