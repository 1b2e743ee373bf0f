package main

import (
	"context"

	"github.com/dukex/graphflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a graph synchronously and print every node output",
		Flags:   []cli.Flag{graphFlag, inputFlag},
		Action: func(ctx context.Context, command *cli.Command) error {
			e, err := newEngine(command, "graphflow-run")
			if err != nil {
				return err
			}

			g, err := loadGraph(command)
			if err != nil {
				return err
			}

			input, err := parseInput(command.String("input"))
			if err != nil {
				return err
			}

			executor := workflow.NewExecutor(e.registry, e.compiler, nil, e.logger)

			result, runErr := executor.RunGraph(ctx, g, input)
			if result != nil {
				err = printJSON(command.Root().Writer, result)
				if err != nil {
					return err
				}
			}

			return runErr
		},
	}
}
