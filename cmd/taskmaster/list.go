package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/taskmaster-io/taskmaster/pkg/cmd"
	"github.com/taskmaster-io/taskmaster/pkg/config"
	"github.com/taskmaster-io/taskmaster/pkg/log"
)

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List workflow definitions from files and storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Aliases: []string{"c"},
				Usage:   "Directory containing workflow definition files",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL; stored workflows are included when set",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
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

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))
			loader := config.NewLoader(logger, registry)

			total := 0
			total += listFileDefinitions(loader, command.String("config-dir"))

			if databaseURL := command.String("database-url"); databaseURL != "" {
				count, err := listStoredWorkflows(ctx, logger, databaseURL)
				if err != nil {
					return err
				}

				total += count
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nTotal workflows: %d\n", total)

			return nil
		},
	}
}

func listFileDefinitions(loader *config.Loader, dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stdout, "Directory not found: %s\n", dir)

		return 0
	}

	_, _ = fmt.Fprintln(os.Stdout, "File Definitions:")
	_, _ = fmt.Fprintln(os.Stdout, "=================")

	count := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}

		path := filepath.Join(dir, entry.Name())

		def, err := loader.LoadFile(path)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "\nWorkflow: %s\n", path)
			_, _ = fmt.Fprintf(os.Stdout, "  Valid: no (%v)\n", err)

			continue
		}

		count++

		_, _ = fmt.Fprintf(os.Stdout, "\nWorkflow: %s (%s)\n", def.Name, def.ID)
		_, _ = fmt.Fprintf(os.Stdout, "  File: %s\n", path)
		_, _ = fmt.Fprintf(os.Stdout, "  Status: %s\n", def.Status)
		_, _ = fmt.Fprintf(os.Stdout, "  Actions: %d  Triggers: %d\n", len(def.Actions), len(def.Triggers))

		if err := loader.Validate(def); err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "  Valid: no (%v)\n", err)
		} else {
			_, _ = fmt.Fprintln(os.Stdout, "  Valid: yes")
		}
	}

	if count == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "\nNo workflow definition files found in %s\n", dir)
	}

	return count
}

func listStoredWorkflows(ctx context.Context, logger *slog.Logger, databaseURL string) (int, error) {
	persistence := cmd.NewPersistence(ctx, logger, databaseURL)
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	workflows, err := persistence.Workflows(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch workflows: %w", err)
	}

	_, _ = fmt.Fprintln(os.Stdout, "\nStored Workflows:")
	_, _ = fmt.Fprintln(os.Stdout, "=================")

	for _, def := range workflows {
		_, _ = fmt.Fprintf(os.Stdout, "\nWorkflow: %s (%s)\n", def.Name, def.ID)
		_, _ = fmt.Fprintf(os.Stdout, "  Status: %s\n", def.Status)
		_, _ = fmt.Fprintf(os.Stdout, "  Actions: %d  Triggers: %d\n", len(def.Actions), len(def.Triggers))
		_, _ = fmt.Fprintf(os.Stdout, "  Updated: %s\n", def.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if len(workflows) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "\nNo workflows found in storage.")
	}

	return len(workflows), nil
}
