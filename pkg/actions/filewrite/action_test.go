package filewrite

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewFileWriteActionFactory(t *testing.T) {
	factory := NewFileWriteActionFactory()
	assert.NotNil(t, factory)
	assert.Equal(t, "file_write", factory.ID())
	assert.Equal(t, "File Write", factory.Name())
	assert.NotEmpty(t, factory.Description())
	assert.Contains(t, factory.Schema(), "properties")
}

func TestNewAction(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{
			name: "file name only",
			config: map[string]any{
				"file_name": "out.json",
			},
			wantErr: false,
		},
		{
			name: "full config",
			config: map[string]any{
				"file_name": "out.json",
				"directory": "/var/exports",
				"overwrite": true,
				"input":     "action_results.fetch.body",
			},
			wantErr: false,
		},
		{
			name:    "missing file name",
			config:  map[string]any{},
			wantErr: true,
		},
		{
			name: "malformed file name template",
			config: map[string]any{
				"file_name": "out-{{.broken",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := NewAction(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, action)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, action)
		})
	}
}

func TestNewAction_DirectoryDefault(t *testing.T) {
	action, err := NewAction(map[string]any{
		"file_name": "out.json",
	})
	require.NoError(t, err)
	assert.Equal(t, os.TempDir(), action.Directory)
}

func TestAction_Execute_WritesActionResults(t *testing.T) {
	dir := t.TempDir()

	action := &Action{
		FileName:  "results.json",
		Directory: dir,
	}

	execCtx := &models.ExecutionContext{
		ActionResults: map[string]any{
			"fetch": map[string]any{"status_code": 200},
		},
	}

	result, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "results.json"), resultMap["file_path"])
	assert.Equal(t, true, resultMap["success"])

	content, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)

	var written map[string]any

	require.NoError(t, json.Unmarshal(content, &written))
	assert.Equal(t, map[string]any{"fetch": map[string]any{"status_code": float64(200)}}, written)
	assert.Equal(t, len(content), resultMap["bytes_written"])
}

func TestAction_Execute_WritesSelectedInput(t *testing.T) {
	dir := t.TempDir()

	action := &Action{
		FileName:  "body.json",
		Directory: dir,
		Input:     "action_results.fetch.body",
	}

	execCtx := &models.ExecutionContext{
		ActionResults: map[string]any{
			"fetch": map[string]any{
				"body": map[string]any{"items": []any{"a", "b"}},
			},
		},
	}

	_, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "body.json"))
	require.NoError(t, err)

	var written map[string]any

	require.NoError(t, json.Unmarshal(content, &written))
	assert.Equal(t, map[string]any{"items": []any{"a", "b"}}, written)
}

func TestAction_Execute_StringDataWrittenRaw(t *testing.T) {
	dir := t.TempDir()

	action := &Action{
		FileName:  "greeting.txt",
		Directory: dir,
		Input:     "hello {{.trigger_data.name}}",
	}

	execCtx := &models.ExecutionContext{
		TriggerData: map[string]any{"name": "world"},
	}

	_, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestAction_Execute_TemplatedFileName(t *testing.T) {
	dir := t.TempDir()

	action := &Action{
		FileName:  "export-{{.execution.id}}.json",
		Directory: dir,
	}

	execCtx := models.NewExecutionContext("wf-1", nil)

	_, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "export-"+execCtx.ID+".json"))
	require.NoError(t, err)
}

func TestAction_Execute_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o600))

	action := &Action{
		FileName:  "out.json",
		Directory: dir,
	}

	_, err := action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	action.Overwrite = true

	_, err = action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
}

func TestAction_Execute_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")

	action := &Action{
		FileName:  "out.json",
		Directory: dir,
	}

	_, err := action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
}

func TestFileWriteActionFactory_Create(t *testing.T) {
	factory := NewFileWriteActionFactory()

	action, err := factory.Create(map[string]any{
		"file_name": "out.json",
	})
	require.NoError(t, err)
	assert.IsType(t, &Action{}, action)

	_, err = factory.Create(nil)
	require.Error(t, err)
}
