package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/taskmaster-io/taskmaster/pkg/cmd"
	"github.com/taskmaster-io/taskmaster/pkg/config"
	"github.com/taskmaster-io/taskmaster/pkg/log"
)

var ErrInvalidDefinitions = errors.New("invalid workflow definitions found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate workflow definition files",
		ArgsUsage: "<workflow-file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing action and trigger plugins",
				Value:    "./plugins",
				Required: false,
				Sources:  cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("taskmaster")

			if command.Args().Len() == 0 {
				return ErrMissingWorkflowFile
			}

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))
			loader := config.NewLoader(logger, registry)

			invalid := 0

			for _, path := range command.Args().Slice() {
				def, err := loader.LoadFile(path)
				if err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "❌ %s: %v\n", path, err)
					invalid++

					continue
				}

				if err := loader.Validate(def); err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "❌ %s: %v\n", path, err)
					invalid++

					continue
				}

				_, _ = fmt.Fprintf(os.Stdout, "✅ %s: %s (%s)\n", path, def.Name, def.ID)
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidDefinitions, invalid)
			}

			_, _ = fmt.Fprintln(os.Stdout, "All workflow definitions are valid.")

			return nil
		},
	}
}
