// Package config loads workflow definitions from YAML and JSON files
// and builds runnable workflows from them. This is the only layer that
// consults the registry; the engine receives finished graphs and never
// resolves a type name itself.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/registry"
	"github.com/taskmaster-io/taskmaster/pkg/workflow"
)

// ErrUnsupportedFormat is returned for definition files that are neither
// YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported workflow definition format")

type Loader struct {
	logger   *slog.Logger
	registry *registry.Registry
	validate *validator.Validate
}

func NewLoader(logger *slog.Logger, reg *registry.Registry) *Loader {
	return &Loader{
		logger:   logger.With("module", "config"),
		registry: reg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadFile reads and decodes one workflow definition. The format is
// chosen by file extension.
func (l *Loader) LoadFile(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow definition %s: %w", path, err)
	}

	def, err := l.Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition %s: %w", path, err)
	}

	return def, nil
}

// LoadDir loads every workflow definition in a directory. Files with
// other extensions are skipped.
func (l *Loader) LoadDir(path string) ([]*models.Workflow, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow directory %s: %w", path, err)
	}

	defs := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}

		def, err := l.LoadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	l.logger.Info("Loaded workflow definitions", "path", path, "count", len(defs))

	return defs, nil
}

// Parse decodes a workflow definition in the given format (".yaml",
// ".yml" or ".json"). A definition without a status defaults to inactive.
func (l *Loader) Parse(data []byte, format string) (*models.Workflow, error) {
	def := &models.Workflow{}

	switch strings.ToLower(format) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, def); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(data, def); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if def.Status == "" {
		def.Status = models.WorkflowStatusInactive
	}

	return def, nil
}

// Validate checks a definition end to end: struct constraints, that every
// referenced type is registered with a valid configuration, and that the
// dependency graph is acyclic. Nothing is kept afterwards.
func (l *Loader) Validate(def *models.Workflow) error {
	_, err := l.Build(def)

	return err
}

// Build turns a definition into a runnable workflow: every action and
// trigger is instantiated through the registry and the dependency edges
// are applied in declaration order.
func (l *Loader) Build(def *models.Workflow) (*workflow.Workflow, error) {
	if err := l.checkStruct(def); err != nil {
		return nil, err
	}

	wf := workflow.New(def.ID, def.Name, def.Description)

	if len(def.Variables) > 0 {
		if err := wf.SetVariables(def.Variables); err != nil {
			return nil, err
		}
	}

	for _, actionDef := range def.Actions {
		handler, err := l.registry.CreateAction(actionDef.Type, actionDef.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to build action %s: %w", actionDef.ID, err)
		}

		if err := wf.AddAction(workflow.NewAction(actionDef.ID, actionDef.Name, handler)); err != nil {
			return nil, err
		}
	}

	// Edges are applied after all actions exist so a definition may
	// reference actions declared later in the file.
	for _, actionDef := range def.Actions {
		for _, dependencyID := range actionDef.DependsOn {
			if err := wf.AddDependency(actionDef.ID, dependencyID); err != nil {
				return nil, err
			}
		}
	}

	for _, triggerDef := range def.Triggers {
		cfg := make(map[string]any, len(triggerDef.Configuration)+2)
		maps.Copy(cfg, triggerDef.Configuration)
		cfg["id"] = triggerDef.ID
		cfg["workflow_id"] = def.ID

		source, err := l.registry.CreateTrigger(triggerDef.Type, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build trigger %s: %w", triggerDef.ID, err)
		}

		if err := source.Validate(); err != nil {
			return nil, fmt.Errorf("trigger %s configuration invalid: %w", triggerDef.ID, err)
		}

		if err := wf.AddTrigger(workflow.NewTrigger(triggerDef.ID, triggerDef.Name, source)); err != nil {
			return nil, err
		}
	}

	return wf, nil
}

func (l *Loader) checkStruct(def *models.Workflow) error {
	err := l.validate.Struct(def)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return fmt.Errorf("workflow definition invalid: %w", validationErrors)
	}

	return err
}
