// Package models defines port-based workflow models for node connections.
package models

import "strings"

// PortDirection represents the direction of data flow for a port.
type PortDirection string

const (
	PortDirectionInput  PortDirection = "input"
	PortDirectionOutput PortDirection = "output"
)

// ParseHandle parses a handle in format "{node_id}-{direction}-{port_name}".
// Node ids may themselves contain dashes, so the handle is split on the
// literal "-input-" or "-output-" separator.
func ParseHandle(handle string) (string, PortDirection, string, bool) {
	for _, direction := range []PortDirection{PortDirectionOutput, PortDirectionInput} {
		separator := "-" + string(direction) + "-"

		idx := strings.Index(handle, separator)
		if idx <= 0 {
			continue
		}

		port := handle[idx+len(separator):]
		if port == "" {
			return "", "", "", false
		}

		return handle[:idx], direction, port, true
	}

	return "", "", "", false
}

// HandlePort extracts the port name of a handle expected to have the given direction.
func HandlePort(handle string, direction PortDirection) (string, bool) {
	_, dir, port, ok := ParseHandle(handle)
	if !ok || dir != direction {
		return "", false
	}

	return port, true
}

// MakeHandle creates a handle from node ID, direction and port name.
func MakeHandle(nodeID string, direction PortDirection, portName string) string {
	return nodeID + "-" + string(direction) + "-" + portName
}
