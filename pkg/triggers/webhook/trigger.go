package webhook

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

type Trigger struct {
	ID         string
	WorkflowID string
	Path       string
	Method     string
	Headers    map[string]string
	Enabled    bool

	mu         sync.Mutex
	registered bool
	logger     *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	id, _ := config["id"].(string)
	workflowID, _ := config["workflow_id"].(string)

	path, ok := config["path"].(string)
	if !ok {
		path = "/webhook"
	}

	method, ok := config["method"].(string)
	if !ok {
		method = "POST"
	}

	enabled := true
	if enabledVal, ok := config["enabled"].(bool); ok {
		enabled = enabledVal
	}

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	trigger := &Trigger{
		ID:         id,
		WorkflowID: workflowID,
		Path:       path,
		Method:     method,
		Headers:    headers,
		Enabled:    enabled,
		logger: logger.With(
			"module", "webhook_trigger",
			"trigger_id", id,
			"path", path,
			"method", method,
		),
	}

	err := trigger.Validate()
	if err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Path == "" {
		return errors.New("webhook trigger path is required")
	}

	if t.Path[0] != '/' {
		return errors.New("webhook trigger path must start with '/'")
	}

	return nil
}

// Start claims the trigger's path on the shared webhook server, bringing
// the server up if this is the first registration. It does not block;
// requests are dispatched from the server's own goroutines.
func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Enabled {
		t.logger.InfoContext(ctx, "Webhook trigger is disabled")

		return nil
	}

	if t.registered {
		return nil
	}

	manager := GetGlobalServerManager()
	if manager == nil {
		return errors.New("global webhook server manager not initialized")
	}

	err := manager.Start(ctx)
	if err != nil {
		return err
	}

	handler := &Handler{
		TriggerID:       t.ID,
		Method:          t.Method,
		RequiredHeaders: t.Headers,
		Callback:        callback,
		Logger:          t.logger,
	}

	err = manager.RegisterWebhook(t.Path, handler)
	if err != nil {
		return err
	}

	t.registered = true
	t.logger.InfoContext(ctx, "Webhook trigger started")

	return nil
}

// Stop releases the trigger's path. The shared server keeps running for
// other triggers.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registered {
		return nil
	}

	manager := GetGlobalServerManager()
	if manager != nil {
		manager.UnregisterWebhook(t.Path)
	}

	t.registered = false
	t.logger.InfoContext(ctx, "Webhook trigger stopped")

	return nil
}
