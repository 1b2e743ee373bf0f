package dataflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaViolation indicates the input record does not satisfy its field schema.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrMalformedInput indicates a value could not be processed by a transformation rule.
	ErrMalformedInput = errors.New("malformed transform input")

	// ErrUnknownRule indicates a transformation rule name that is not supported.
	ErrUnknownRule = errors.New("unknown transformation rule")

	// ErrInvalidSchema indicates a node declared a field schema that cannot be decoded.
	ErrInvalidSchema = errors.New("invalid field schema")
)

// ValidationError describes one violated field constraint.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v ValidationError) String() string {
	return v.Field + ": " + v.Message
}

// Error is a data flow failure: a schema violation or a malformed transform input.
// It is fatal for the node attempting the transform and never retried.
type Error struct {
	NodeID     string
	Field      string
	Rule       string
	Violations []ValidationError
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("data flow error")

	if e.NodeID != "" {
		fmt.Fprintf(&b, " for node %s", e.NodeID)
	}

	if e.Field != "" {
		fmt.Fprintf(&b, " on field %s", e.Field)
	}

	if e.Rule != "" {
		fmt.Fprintf(&b, " (rule %s)", e.Rule)
	}

	fmt.Fprintf(&b, ": %v", e.Err)

	if len(e.Violations) > 0 {
		messages := make([]string, 0, len(e.Violations))
		for _, violation := range e.Violations {
			messages = append(messages, violation.String())
		}

		b.WriteString(": " + strings.Join(messages, "; "))
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsDataFlowError reports whether err is or wraps a data flow error.
func IsDataFlowError(err error) bool {
	var dfErr *Error

	return errors.As(err, &dfErr)
}
