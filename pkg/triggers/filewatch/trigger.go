// Package filewatch provides a trigger that fires on filesystem events.
//
// A trigger watches a directory (optionally recursively) and fires its
// callback when files matching the configured glob patterns are created,
// modified or deleted. Rapid bursts of events for the same file are
// collapsed by a debounce window.
package filewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

const (
	defaultDebounce = 500 * time.Millisecond
	debounceRetain  = time.Minute
)

var validEvents = map[string]bool{
	"created":  true,
	"modified": true,
	"deleted":  true,
}

type Trigger struct {
	ID             string
	WorkflowID     string
	Path           string
	Patterns       []string
	IgnorePatterns []string
	Events         []string
	Recursive      bool
	Debounce       time.Duration
	Enabled        bool

	mu        sync.Mutex
	running   bool
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	wg        sync.WaitGroup
	lastFired map[string]time.Time
	callback  protocol.TriggerCallback
	logger    *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	id, _ := config["id"].(string)
	workflowID, _ := config["workflow_id"].(string)
	path, _ := config["path"].(string)

	events := stringSlice(config["events"])
	if len(events) == 0 {
		events = []string{"created", "modified", "deleted"}
	}

	recursive := true
	if recursiveVal, ok := config["recursive"].(bool); ok {
		recursive = recursiveVal
	}

	debounce := defaultDebounce

	switch d := config["debounce"].(type) {
	case float64:
		debounce = time.Duration(d * float64(time.Second))
	case int:
		debounce = time.Duration(d) * time.Second
	}

	enabled := true
	if enabledVal, ok := config["enabled"].(bool); ok {
		enabled = enabledVal
	}

	trigger := &Trigger{
		ID:             id,
		WorkflowID:     workflowID,
		Path:           path,
		Patterns:       stringSlice(config["patterns"]),
		IgnorePatterns: stringSlice(config["ignore_patterns"]),
		Events:         events,
		Recursive:      recursive,
		Debounce:       debounce,
		Enabled:        enabled,
		logger: logger.With(
			"module", "file_trigger",
			"trigger_id", id,
			"path", path,
		),
	}

	err := trigger.Validate()
	if err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.ID == "" {
		return errors.New("file trigger ID is required")
	}

	if t.Path == "" {
		return errors.New("file trigger path is required")
	}

	for _, pattern := range append(append([]string{}, t.Patterns...), t.IgnorePatterns...) {
		_, err := filepath.Match(pattern, "probe")
		if err != nil {
			return fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
	}

	for _, event := range t.Events {
		if !validEvents[event] {
			return fmt.Errorf("invalid file event type %q, must be one of created, modified, deleted", event)
		}
	}

	return nil
}

// Start begins watching the configured path. It does not block; filesystem
// events are handled on a background goroutine until Stop is called.
func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Enabled {
		t.logger.InfoContext(ctx, "File trigger is disabled")

		return nil
	}

	if t.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	err = t.addWatches(watcher)
	if err != nil {
		watcher.Close()

		return err
	}

	t.logger.InfoContext(ctx, "Starting file trigger", "recursive", t.Recursive)

	t.callback = callback
	t.watcher = watcher
	t.stopCh = make(chan struct{})
	t.lastFired = make(map[string]time.Time)
	t.running = true

	t.wg.Add(1)
	go t.watch(ctx)

	return nil
}

func (t *Trigger) addWatches(watcher *fsnotify.Watcher) error {
	if !t.Recursive {
		err := watcher.Add(t.Path)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", t.Path, err)
		}

		return nil
	}

	err := filepath.WalkDir(t.Path, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return watcher.Add(path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", t.Path, err)
	}

	return nil
}

func (t *Trigger) watch(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}

			t.handleEvent(ctx, event)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}

			t.logger.ErrorContext(ctx, "Filesystem watcher error", "error", err)
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (t *Trigger) handleEvent(ctx context.Context, event fsnotify.Event) {
	eventType := classifyEvent(event.Op)
	if eventType == "" {
		return
	}

	// New directories join the watch set before filtering so files created
	// inside them are seen even when the directory name itself is filtered.
	if t.Recursive && eventType == "created" {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			err = t.watcher.Add(event.Name)
			if err != nil {
				t.logger.ErrorContext(ctx, "Failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	if !t.wantsEvent(eventType) {
		return
	}

	if !t.matchesPatterns(event.Name) {
		return
	}

	if t.debounced(eventType, event.Name) {
		return
	}

	t.logger.DebugContext(ctx, "Filesystem event", "event", eventType, "file", event.Name)

	triggerData := map[string]any{
		"event_type": eventType,
		"path":       event.Name,
		"name":       filepath.Base(event.Name),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		err := t.callback(context.Background(), triggerData)
		if err != nil {
			t.logger.Error("Error executing workflow for file trigger", "error", err)
		}
	}()
}

func classifyEvent(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "created"
	case op.Has(fsnotify.Write):
		return "modified"
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return "deleted"
	}

	return ""
}

func (t *Trigger) wantsEvent(eventType string) bool {
	for _, event := range t.Events {
		if event == eventType {
			return true
		}
	}

	return false
}

func (t *Trigger) matchesPatterns(path string) bool {
	name := filepath.Base(path)

	for _, pattern := range t.IgnorePatterns {
		if matchPattern(pattern, path, name) {
			return false
		}
	}

	if len(t.Patterns) == 0 {
		return true
	}

	for _, pattern := range t.Patterns {
		if matchPattern(pattern, path, name) {
			return true
		}
	}

	return false
}

// matchPattern matches against the base name unless the pattern itself
// contains a path separator.
func matchPattern(pattern, path, name string) bool {
	target := name
	if strings.ContainsRune(pattern, filepath.Separator) {
		target = path
	}

	matched, err := filepath.Match(pattern, target)

	return err == nil && matched
}

func (t *Trigger) debounced(eventType, path string) bool {
	if t.Debounce <= 0 {
		return false
	}

	key := eventType + ":" + path
	now := time.Now()

	if last, ok := t.lastFired[key]; ok && now.Sub(last) < t.Debounce {
		return true
	}

	for firedKey, firedAt := range t.lastFired {
		if now.Sub(firedAt) > debounceRetain {
			delete(t.lastFired, firedKey)
		}
	}

	t.lastFired[key] = now

	return false
}

// Stop closes the watcher and waits for the event loop to drain. Stopping a
// trigger that is not running is a no-op.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	t.logger.InfoContext(ctx, "Stopping file trigger")

	close(t.stopCh)
	t.watcher.Close()
	t.wg.Wait()

	t.watcher = nil
	t.running = false

	return nil
}

func stringSlice(value any) []string {
	switch values := value.(type) {
	case []string:
		return values
	case []any:
		result := make([]string, 0, len(values))

		for _, v := range values {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}

		return result
	}

	return nil
}
