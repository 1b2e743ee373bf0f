package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dukex/graphflow/pkg/cmd"
	"github.com/dukex/graphflow/pkg/compiler"
	"github.com/dukex/graphflow/pkg/graph"
	"github.com/dukex/graphflow/pkg/log"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/registry"
	cli "github.com/urfave/cli/v3"
)

const defaultJobTimeout = 5 * time.Minute

var graphFlag = &cli.StringFlag{
	Name:     "graph",
	Aliases:  []string{"g"},
	Usage:    "Path to the graph document (.json, .yaml or .yml)",
	Required: true,
}

var inputFlag = &cli.StringFlag{
	Name:    "input",
	Aliases: []string{"i"},
	Usage:   "Initial data as a JSON object, or @path to read it from a file",
}

// engine bundles what every subcommand needs to compile and execute a graph.
type engine struct {
	logger   *slog.Logger
	registry *registry.Registry
	compiler *compiler.Compiler
}

func newEngine(command *cli.Command, module string) (*engine, error) {
	log.Setup(command.String("log-level"))

	logger := log.WithModule(module)

	reg, err := cmd.NewRegistry(logger, command.String("plugins-path"), command.Duration("job-timeout"))
	if err != nil {
		return nil, err
	}

	return &engine{
		logger:   logger,
		registry: reg,
		compiler: compiler.NewCompiler(reg, logger),
	}, nil
}

func loadGraph(command *cli.Command) (*models.Graph, error) {
	g, err := graph.LoadFile(command.String("graph"))
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	return g, nil
}

func parseInput(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	if raw[0] == '@' {
		body, err := os.ReadFile(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}

		raw = string(body)
	}

	var input map[string]any

	err := json.Unmarshal([]byte(raw), &input)
	if err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}

	return input, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
