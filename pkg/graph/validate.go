package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformedGraph = errors.New("malformed graph")
	ErrMalformedEdge  = errors.New("malformed edge")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Problem is one structural defect of a graph document.
type Problem struct {
	Err     error
	NodeID  string
	EdgeID  string
	Message string
}

func (p Problem) String() string {
	switch {
	case p.EdgeID != "":
		return fmt.Sprintf("edge %s: %s", p.EdgeID, p.Message)
	case p.NodeID != "":
		return fmt.Sprintf("node %s: %s", p.NodeID, p.Message)
	default:
		return p.Message
	}
}

// ValidationError collects every structural problem found in a graph.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.String())
	}

	return "invalid graph: " + strings.Join(msgs, "; ")
}

// Is matches the sentinel of any collected problem.
func (e *ValidationError) Is(target error) bool {
	for _, p := range e.Problems {
		if errors.Is(p.Err, target) {
			return true
		}
	}

	return false
}

// Validate checks the graph document structure: required fields, unique node
// and edge ids and edge endpoints referencing declared nodes. Cycles, including
// self-loops, are left to the compiler.
func Validate(g *models.Graph) error {
	if g == nil {
		return &ValidationError{Problems: []Problem{{Err: ErrMalformedGraph, Message: "graph is nil"}}}
	}

	var problems []Problem

	if len(g.Nodes) == 0 {
		problems = append(problems, Problem{Err: ErrMalformedGraph, Message: "graph has no nodes"})
	}

	nodes := make(map[string]bool, len(g.Nodes))

	for i, node := range g.Nodes {
		if node == nil {
			problems = append(problems, Problem{Err: ErrMalformedGraph, Message: fmt.Sprintf("node %d is empty", i)})

			continue
		}

		if err := validate.Struct(node); err != nil {
			problems = append(problems, Problem{Err: ErrMalformedGraph, NodeID: node.ID, Message: fieldErrors(err, i)})
		}

		if node.ID == "" {
			continue
		}

		if nodes[node.ID] {
			problems = append(problems, Problem{Err: ErrMalformedGraph, NodeID: node.ID, Message: "duplicate node id"})
		}

		nodes[node.ID] = true
	}

	edges := make(map[string]bool, len(g.Edges))

	for i, edge := range g.Edges {
		if edge == nil {
			problems = append(problems, Problem{Err: ErrMalformedEdge, Message: fmt.Sprintf("edge %d is empty", i)})

			continue
		}

		if err := validate.Struct(edge); err != nil {
			problems = append(problems, Problem{Err: ErrMalformedEdge, EdgeID: edge.ID, Message: fieldErrors(err, i)})

			continue
		}

		if edges[edge.ID] {
			problems = append(problems, Problem{Err: ErrMalformedEdge, EdgeID: edge.ID, Message: "duplicate edge id"})
		}

		edges[edge.ID] = true

		if !nodes[edge.Source] {
			problems = append(problems, Problem{Err: ErrMalformedEdge, EdgeID: edge.ID, Message: "unknown source node " + edge.Source})
		}

		if !nodes[edge.Target] {
			problems = append(problems, Problem{Err: ErrMalformedEdge, EdgeID: edge.ID, Message: "unknown target node " + edge.Target})
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

func fieldErrors(err error, index int) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("[%d] field %s failed %s", index, fieldErr.Field(), fieldErr.Tag()))
	}

	return strings.Join(msgs, ", ")
}
