package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taskmaster-io/taskmaster/pkg/persistence"
	"github.com/taskmaster-io/taskmaster/pkg/persistence/file"
	"github.com/taskmaster-io/taskmaster/pkg/persistence/postgresql"
)

// NewPersistence builds the storage backend selected by the URL scheme:
// "postgres://" for PostgreSQL, "file://" or a bare path for the file
// system.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch persistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func persistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
