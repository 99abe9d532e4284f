package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

func testWorkflow(id, name string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   name,
		Status: models.WorkflowStatusInactive,
		Actions: []*models.WorkflowAction{
			{ID: "step", Type: "log", Configuration: map[string]any{"message": "hi"}},
		},
	}
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	wf := testWorkflow("wf-1", "First Workflow")
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	// Timestamps were stamped on save.
	assert.False(t, wf.CreatedAt.IsZero())
	assert.False(t, wf.UpdatedAt.IsZero())

	loaded, err := p.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "First Workflow", loaded.Name)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, "log", loaded.Actions[0].Type)
}

func TestPersistence_SavePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	wf := testWorkflow("wf-1", "First Workflow")
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	createdAt := wf.CreatedAt

	time.Sleep(10 * time.Millisecond)

	wf.Name = "Renamed Workflow"
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	loaded, err := p.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Workflow", loaded.Name)
	assert.Equal(t, createdAt.Unix(), loaded.CreatedAt.Unix())
	assert.True(t, loaded.UpdatedAt.After(loaded.CreatedAt))
}

func TestPersistence_WorkflowByID_Missing(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	loaded, err := p.WorkflowByID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPersistence_Workflows(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.SaveWorkflow(ctx, testWorkflow("wf-a", "Workflow A")))
	require.NoError(t, p.SaveWorkflow(ctx, testWorkflow("wf-b", "Workflow B")))

	workflows, err := p.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)
}

func TestPersistence_Workflows_EmptyRoot(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	workflows, err := p.Workflows(ctx)
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestPersistence_DeleteWorkflow(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.SaveWorkflow(ctx, testWorkflow("wf-1", "First Workflow")))
	require.NoError(t, p.DeleteWorkflow(ctx, "wf-1"))

	loaded, err := p.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting again is a no-op.
	require.NoError(t, p.DeleteWorkflow(ctx, "wf-1"))
}

func TestPersistence_FileURLPrefix(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := NewPersistence("file://" + dir)
	require.NoError(t, p.SaveWorkflow(ctx, testWorkflow("wf-1", "First Workflow")))
	require.NoError(t, p.HealthCheck(ctx))

	loaded, err := p.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestPersistence_HealthCheck_MissingRoot(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence("/nonexistent/taskmaster-test-root")

	assert.Error(t, p.HealthCheck(ctx))
}
