package main

import (
	"context"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
)

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Compile a graph and print its execution order",
		Flags:   []cli.Flag{graphFlag},
		Action: func(ctx context.Context, command *cli.Command) error {
			e, err := newEngine(command, "graphflow-validate")
			if err != nil {
				return err
			}

			g, err := loadGraph(command)
			if err != nil {
				return err
			}

			plan, err := e.compiler.Compile(ctx, g)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(command.Root().Writer, "graph %s is valid\nexecution order: %s\n",
				plan.GraphID, strings.Join(plan.ExecutionOrder, " -> "))

			return err
		},
	}
}
