// Package main provides the graphflow command line: validate graphs, run them
// synchronously or drive a pipeline to completion in-process.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "graphflow",
		Usage:                 "Compile and execute workflow graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.DurationFlag{
				Name:    "job-timeout",
				Usage:   "Maximum duration of a single node invocation",
				Value:   defaultJobTimeout,
				Sources: cli.EnvVars("JOB_TIMEOUT"),
			},
		},
		Commands: []*cli.Command{
			ValidateCommand(),
			RunCommand(),
			OrchestrateCommand(),
		},
	}
}
