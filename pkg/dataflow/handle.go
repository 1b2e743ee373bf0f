package dataflow

import "github.com/dukex/graphflow/pkg/models"

// ParseHandle parses a "{nodeId}-{direction}-{portName}" handle.
func ParseHandle(handle string) (string, models.PortDirection, string, bool) {
	return models.ParseHandle(handle)
}

// PortName returns the port name of a handle, or "" when the handle is
// malformed or points the other way.
func PortName(handle string, direction models.PortDirection) string {
	port, ok := models.HandlePort(handle, direction)
	if !ok {
		return ""
	}

	return port
}
