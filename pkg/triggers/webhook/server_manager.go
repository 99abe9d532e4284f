// Package webhook provides an HTTP webhook trigger with centralized server
// management. All webhook triggers in a process share one HTTP server; each
// trigger claims a path on it, and duplicate path registrations are
// rejected.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

var (
	globalServerManager *ServerManager
	once                sync.Once
)

// Handler dispatches requests on one webhook path to a trigger callback.
type Handler struct {
	TriggerID       string
	Method          string
	RequiredHeaders map[string]string
	Callback        protocol.TriggerCallback
	Logger          *slog.Logger
}

// ServerManager owns the shared webhook HTTP server and the path-to-handler
// table.
type ServerManager struct {
	server   *http.Server
	handlers map[string]*Handler
	mu       sync.RWMutex
	logger   *slog.Logger
	port     int
	started  bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewServerManager creates a standalone server manager. Most callers want
// GetServerManager, which installs a process-wide instance.
func NewServerManager(port int, logger *slog.Logger) *ServerManager {
	return &ServerManager{
		handlers: make(map[string]*Handler),
		logger:   logger.With("module", "webhook_server_manager"),
		port:     port,
		done:     make(chan struct{}),
	}
}

// GetServerManager returns the process-wide server manager, creating it on
// first call.
func GetServerManager(port int, logger *slog.Logger) *ServerManager {
	once.Do(func() {
		globalServerManager = NewServerManager(port, logger)
	})

	return globalServerManager
}

func SetGlobalServerManager(manager *ServerManager) {
	globalServerManager = manager
}

func GetGlobalServerManager() *ServerManager {
	return globalServerManager
}

// ResetGlobalManager resets the global manager (for testing purposes).
func ResetGlobalManager() {
	once = sync.Once{}
	globalServerManager = nil
}

func (sm *ServerManager) RegisterWebhook(path string, handler *Handler) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.handlers[path]; exists {
		return fmt.Errorf("webhook path %s already registered", path)
	}

	sm.handlers[path] = handler
	sm.logger.Info("Registered webhook handler", "path", path, "trigger_id", handler.TriggerID)

	return nil
}

func (sm *ServerManager) UnregisterWebhook(path string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if handler, exists := sm.handlers[path]; exists {
		delete(sm.handlers, path)
		sm.logger.Info("Unregistered webhook handler", "path", path, "trigger_id", handler.TriggerID)
	}
}

// Start brings the HTTP server up. Starting an already-started manager is a
// no-op.
func (sm *ServerManager) Start(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.started {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", sm.handleWebhook)

	sm.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", sm.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sm.logger.Info("Starting webhook HTTP server", "addr", sm.server.Addr)

		err := sm.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sm.logger.Error("Webhook server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		err := sm.Stop(context.Background())
		if err != nil {
			sm.logger.Error("Failed to stop webhook server", "error", err)
		}
	}()

	sm.started = true

	return nil
}

func (sm *ServerManager) handleWebhook(w http.ResponseWriter, r *http.Request) {
	sm.mu.RLock()
	handler, exists := sm.handlers[r.URL.Path]
	sm.mu.RUnlock()

	if !exists {
		http.Error(w, "webhook path not found", http.StatusNotFound)

		return
	}

	if handler.Method != "" && r.Method != handler.Method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	for name, want := range handler.RequiredHeaders {
		if r.Header.Get(name) != want {
			http.Error(w, "missing or invalid required header", http.StatusUnauthorized)

			return
		}
	}

	handler.Logger.Info("Received webhook request", "method", r.Method, "path", r.URL.Path)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)

		return
	}

	defer func() {
		err := r.Body.Close()
		if err != nil {
			handler.Logger.Error("Failed to close request body", "error", err)
		}
	}()

	var bodyData any

	if len(body) > 0 {
		err := json.Unmarshal(body, &bodyData)
		if err != nil {
			bodyData = string(body)
		}
	}

	headers := make(map[string]any)

	for name, values := range r.Header {
		if len(values) == 1 {
			headers[name] = values[0]
		} else {
			headers[name] = values
		}
	}

	query := make(map[string]any)

	for name, values := range r.URL.Query() {
		if len(values) == 1 {
			query[name] = values[0]
		} else {
			query[name] = values
		}
	}

	triggerData := map[string]any{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"method":      r.Method,
		"path":        r.URL.Path,
		"query":       query,
		"headers":     headers,
		"body":        bodyData,
		"remote_addr": r.RemoteAddr,
	}

	go func() {
		err := handler.Callback(context.Background(), triggerData)
		if err != nil {
			handler.Logger.Error("Error executing workflow for webhook trigger", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err = json.NewEncoder(w).Encode(map[string]any{
		"status":  "success",
		"message": "webhook received",
	})
	if err != nil {
		handler.Logger.Error("Failed to encode response", "error", err)
	}
}

// Stop shuts the HTTP server down gracefully. Stopping a manager that is
// not running is a no-op.
func (sm *ServerManager) Stop(_ context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.started || sm.server == nil {
		return nil
	}

	sm.logger.Info("Stopping webhook server manager")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := sm.server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shut down webhook server: %w", err)
	}

	sm.started = false
	sm.doneOnce.Do(func() {
		close(sm.done)
	})

	return nil
}

func (sm *ServerManager) HandlerCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.handlers)
}

// Done is closed when the server has shut down.
func (sm *ServerManager) Done() <-chan struct{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.done
}
