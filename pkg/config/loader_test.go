package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
	"github.com/taskmaster-io/taskmaster/pkg/registry"
	"github.com/taskmaster-io/taskmaster/pkg/workflow"
)

type echoActionFactory struct{}

func (f *echoActionFactory) ID() string             { return "echo" }
func (f *echoActionFactory) Name() string           { return "Echo" }
func (f *echoActionFactory) Description() string    { return "Returns its configured value" }
func (f *echoActionFactory) Schema() map[string]any { return nil }

func (f *echoActionFactory) Create(config map[string]any) (protocol.Action, error) {
	value := config["value"]

	return protocol.ActionFunc(func(_ context.Context, _ *models.ExecutionContext, _ *slog.Logger) (any, error) {
		return value, nil
	}), nil
}

type captureTriggerFactory struct {
	lastConfig map[string]any
}

func (f *captureTriggerFactory) ID() string             { return "manual" }
func (f *captureTriggerFactory) Name() string           { return "Manual" }
func (f *captureTriggerFactory) Description() string    { return "Never fires on its own" }
func (f *captureTriggerFactory) Schema() map[string]any { return nil }

func (f *captureTriggerFactory) Create(config map[string]any, _ *slog.Logger) (protocol.Trigger, error) {
	f.lastConfig = config

	return &inertTrigger{}, nil
}

type inertTrigger struct{}

func (trig *inertTrigger) Start(_ context.Context, _ protocol.TriggerCallback) error { return nil }
func (trig *inertTrigger) Stop(_ context.Context) error                              { return nil }
func (trig *inertTrigger) Validate() error                                           { return nil }

func newTestLoader() (*Loader, *captureTriggerFactory) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	reg := registry.NewRegistry(logger)
	reg.RegisterAction(&echoActionFactory{})

	triggerFactory := &captureTriggerFactory{}
	reg.RegisterTrigger(triggerFactory)

	return NewLoader(logger, reg), triggerFactory
}

const sampleYAML = `
id: order-sync
name: Order Sync
description: Syncs orders downstream
status: active
variables:
  region: us-east-1
triggers:
  - id: nightly
    type: manual
    configuration:
      note: placeholder
actions:
  - id: fetch
    name: Fetch Orders
    type: echo
    configuration:
      value: fetched
  - id: store
    type: echo
    configuration:
      value: stored
    depends_on:
      - fetch
`

func TestLoader_LoadFile_YAML(t *testing.T) {
	loader, _ := newTestLoader()

	path := filepath.Join(t.TempDir(), "order-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	def, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "order-sync", def.ID)
	assert.Equal(t, "Order Sync", def.Name)
	assert.Equal(t, models.WorkflowStatusActive, def.Status)
	require.Len(t, def.Actions, 2)
	assert.Equal(t, []string{"fetch"}, def.Actions[1].DependsOn)
	require.Len(t, def.Triggers, 1)
	assert.Equal(t, "manual", def.Triggers[0].Type)
}

func TestLoader_LoadFile_JSON(t *testing.T) {
	loader, _ := newTestLoader()

	definition := `{
		"id": "json-flow",
		"name": "JSON Flow",
		"actions": [
			{"id": "only", "type": "echo", "configuration": {"value": 1}}
		]
	}`

	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, os.WriteFile(path, []byte(definition), 0o600))

	def, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "json-flow", def.ID)
	// Status defaults to inactive when omitted.
	assert.Equal(t, models.WorkflowStatusInactive, def.Status)
}

func TestLoader_Parse_UnsupportedFormat(t *testing.T) {
	loader, _ := newTestLoader()

	_, err := loader.Parse([]byte("whatever"), ".toml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_Build(t *testing.T) {
	loader, triggerFactory := newTestLoader()

	def, err := loader.Parse([]byte(sampleYAML), ".yaml")
	require.NoError(t, err)

	wf, err := loader.Build(def)
	require.NoError(t, err)

	assert.Equal(t, "order-sync", wf.ID())
	assert.Equal(t, "us-east-1", wf.Variables()["region"])
	assert.Equal(t, []string{"fetch"}, wf.Dependencies("store"))

	order, err := wf.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "fetch", order[0].ID)

	// Trigger config got the identity keys injected.
	assert.Equal(t, "nightly", triggerFactory.lastConfig["id"])
	assert.Equal(t, "order-sync", triggerFactory.lastConfig["workflow_id"])
	assert.Equal(t, "placeholder", triggerFactory.lastConfig["note"])

	triggers := wf.Triggers()
	require.Len(t, triggers, 1)
	assert.Equal(t, "nightly", triggers[0].ID)
}

func TestLoader_Build_UnknownActionType(t *testing.T) {
	loader, _ := newTestLoader()

	def := &models.Workflow{
		ID:   "broken",
		Name: "Broken Flow",
		Actions: []*models.WorkflowAction{
			{ID: "a", Type: "no-such-action"},
		},
	}

	_, err := loader.Build(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestLoader_Build_UnknownDependency(t *testing.T) {
	loader, _ := newTestLoader()

	def := &models.Workflow{
		ID:   "broken",
		Name: "Broken Flow",
		Actions: []*models.WorkflowAction{
			{ID: "a", Type: "echo", DependsOn: []string{"ghost"}},
		},
	}

	_, err := loader.Build(def)
	require.Error(t, err)
	assert.True(t, workflow.IsUnknownAction(err))
}

func TestLoader_Build_CyclicDependencies(t *testing.T) {
	loader, _ := newTestLoader()

	def := &models.Workflow{
		ID:   "cyclic",
		Name: "Cyclic Flow",
		Actions: []*models.WorkflowAction{
			{ID: "a", Type: "echo", DependsOn: []string{"b"}},
			{ID: "b", Type: "echo", DependsOn: []string{"a"}},
		},
	}

	_, err := loader.Build(def)
	require.Error(t, err)
	assert.True(t, workflow.IsCycle(err))
}

func TestLoader_Validate_StructConstraints(t *testing.T) {
	loader, _ := newTestLoader()

	// Name shorter than three characters.
	err := loader.Validate(&models.Workflow{ID: "w", Name: "ab"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow definition invalid")

	// Action without a type.
	err = loader.Validate(&models.Workflow{
		ID:   "w",
		Name: "Valid Name",
		Actions: []*models.WorkflowAction{
			{ID: "a"},
		},
	})
	require.Error(t, err)
}

func TestLoader_LoadDir(t *testing.T) {
	loader, _ := newTestLoader()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte(sampleYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.json"),
		[]byte(`{"id": "two", "name": "Second Flow", "actions": []}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o600))

	defs, err := loader.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
}
