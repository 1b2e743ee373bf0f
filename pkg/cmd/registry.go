// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/graphflow/pkg/registry"
)

// NewRegistry builds the node registry: the built-in nodes, any node plugins
// found under pluginsPath and the per-invocation timeout.
func NewRegistry(logger *slog.Logger, pluginsPath string, jobTimeout time.Duration) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	if pluginsPath != "" {
		_, err := reg.LoadNodePlugins(pluginsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load node plugins: %w", err)
		}
	}

	if jobTimeout > 0 {
		reg.SetExecutionTimeout(jobTimeout)
	}

	return reg, nil
}
