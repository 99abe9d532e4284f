// Package registry maps action and trigger type names to their
// factories. Only the configuration loader and the management API talk
// to the registry; the engine executes whatever the loader built and
// never looks up a type at run time.
package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

type Registry struct {
	logger           *slog.Logger
	actionFactories  map[string]protocol.ActionFactory
	triggerFactories map[string]protocol.TriggerFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:           log,
		actionFactories:  make(map[string]protocol.ActionFactory),
		triggerFactories: make(map[string]protocol.TriggerFactory),
	}
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.actionFactories[actionFactory.ID()] = actionFactory
}

func (r *Registry) RegisterTrigger(triggerFactory protocol.TriggerFactory) {
	r.triggerFactories[triggerFactory.ID()] = triggerFactory
}

// CreateAction builds an action instance, validating the configuration
// against the factory's schema first.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	if err := validateConfig(config, factory.Schema()); err != nil {
		return nil, fmt.Errorf("invalid configuration for action type '%s': %w", actionType, err)
	}

	return factory.Create(config)
}

// CreateTrigger builds a trigger instance, validating the configuration
// against the factory's schema first.
func (r *Registry) CreateTrigger(triggerType string, config map[string]any) (protocol.Trigger, error) {
	factory, ok := r.triggerFactories[triggerType]
	if !ok {
		return nil, fmt.Errorf("trigger type '%s' not registered", triggerType)
	}

	if err := validateConfig(config, factory.Schema()); err != nil {
		return nil, fmt.Errorf("invalid configuration for trigger type '%s': %w", triggerType, err)
	}

	return factory.Create(config, r.logger)
}

// AvailableActions returns the registered action type names, sorted.
func (r *Registry) AvailableActions() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	sort.Strings(types)

	return types
}

// AvailableTriggers returns the registered trigger type names, sorted.
func (r *Registry) AvailableTriggers() []string {
	types := make([]string, 0, len(r.triggerFactories))
	for triggerType := range r.triggerFactories {
		types = append(types, triggerType)
	}

	sort.Strings(types)

	return types
}

// ActionFactory returns the factory registered for an action type.
func (r *Registry) ActionFactory(actionType string) (protocol.ActionFactory, bool) {
	factory, ok := r.actionFactories[actionType]

	return factory, ok
}

// TriggerFactory returns the factory registered for a trigger type.
func (r *Registry) TriggerFactory(triggerType string) (protocol.TriggerFactory, bool) {
	factory, ok := r.triggerFactories[triggerType]

	return factory, ok
}

func (r *Registry) LoadActionPlugins(pluginsPath string) ([]protocol.ActionFactory, error) {
	return loadPlugin[protocol.ActionFactory](r.logger, pluginsPath, "Action")
}

func (r *Registry) LoadTriggerPlugins(pluginsPath string) ([]protocol.TriggerFactory, error) {
	return loadPlugin[protocol.TriggerFactory](r.logger, pluginsPath, "Trigger")
}

// validateConfig checks a configuration map against a JSON schema. A nil
// or empty schema accepts anything.
func validateConfig(config map[string]any, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("schema validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no %s symbol: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s: symbol %s has unexpected type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
