// Package persistence provides the data storage abstraction for workflow
// definitions. Implementations exist for the local file system and for
// PostgreSQL; the URL scheme of the storage address selects between them.
package persistence

import (
	"context"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
