// Package poll provides a trigger that periodically polls an HTTP endpoint.
//
// Each poll fetches the configured URL and compares the response body against
// the previous poll. Under the default any_change condition the first poll
// only records a baseline; later polls fire the callback whenever the body
// differs from the one before. The specific_value condition instead fires on
// every poll whose parsed response equals the configured value.
package poll

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

const (
	conditionAnyChange     = "any_change"
	conditionSpecificValue = "specific_value"

	defaultPollInterval = 60 * time.Second
	requestTimeout      = 30 * time.Second
)

type Trigger struct {
	ID             string
	WorkflowID     string
	URL            string
	Method         string
	Headers        map[string]string
	Interval       time.Duration
	Condition      string
	ConditionValue any
	Enabled        bool

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	client   *http.Client
	lastHash string
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	id, _ := config["id"].(string)
	workflowID, _ := config["workflow_id"].(string)
	pollURL, _ := config["url"].(string)

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	headers := make(map[string]string)
	if headersVal, ok := config["headers"].(map[string]any); ok {
		for key, value := range headersVal {
			if s, ok := value.(string); ok {
				headers[key] = s
			}
		}
	}

	interval := defaultPollInterval

	switch i := config["interval"].(type) {
	case float64:
		interval = time.Duration(i * float64(time.Second))
	case int:
		interval = time.Duration(i) * time.Second
	}

	condition, _ := config["condition"].(string)
	if condition == "" {
		condition = conditionAnyChange
	}

	enabled := true
	if enabledVal, ok := config["enabled"].(bool); ok {
		enabled = enabledVal
	}

	trigger := &Trigger{
		ID:             id,
		WorkflowID:     workflowID,
		URL:            pollURL,
		Method:         strings.ToUpper(method),
		Headers:        headers,
		Interval:       interval,
		Condition:      condition,
		ConditionValue: config["condition_value"],
		Enabled:        enabled,
		client:         &http.Client{Timeout: requestTimeout},
		logger: logger.With(
			"module", "poll_trigger",
			"trigger_id", id,
			"url", pollURL,
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
		return errors.New("poll trigger ID is required")
	}

	if t.URL == "" {
		return errors.New("poll trigger URL is required")
	}

	parsed, err := url.Parse(t.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("poll trigger URL %q must be a valid http or https URL", t.URL)
	}

	if t.Interval <= 0 {
		return errors.New("poll trigger interval must be positive")
	}

	switch t.Condition {
	case conditionAnyChange:
	case conditionSpecificValue:
		if t.ConditionValue == nil {
			return errors.New("poll trigger condition_value is required for the specific_value condition")
		}
	default:
		return fmt.Errorf("invalid poll condition %q, must be any_change or specific_value", t.Condition)
	}

	return nil
}

// Start begins polling on a background goroutine. The first request happens
// immediately; Start itself does not block.
func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Enabled {
		t.logger.InfoContext(ctx, "Poll trigger is disabled")

		return nil
	}

	if t.running {
		return nil
	}

	t.logger.InfoContext(ctx, "Starting poll trigger", "interval", t.Interval)

	t.callback = callback
	t.stopCh = make(chan struct{})
	t.lastHash = ""
	t.running = true

	t.wg.Add(1)
	go t.pollLoop(ctx)

	return nil
}

func (t *Trigger) pollLoop(ctx context.Context) {
	defer t.wg.Done()

	t.poll(ctx)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.poll(ctx)
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (t *Trigger) poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, t.Method, t.URL, nil)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to build poll request", "error", err)

		return
	}

	for key, value := range t.Headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.ErrorContext(ctx, "Poll request failed", "error", err)

		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to read poll response", "error", err)

		return
	}

	responseData, hash := parseResponse(body)

	if t.shouldFire(responseData, hash) {
		t.logger.DebugContext(ctx, "Poll condition met", "status_code", resp.StatusCode)

		triggerData := map[string]any{
			"url":         t.URL,
			"response":    responseData,
			"status_code": resp.StatusCode,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}

		go func() {
			err := t.callback(context.Background(), triggerData)
			if err != nil {
				t.logger.Error("Error executing workflow for poll trigger", "error", err)
			}
		}()
	}

	t.lastHash = hash
}

// parseResponse decodes a JSON body when possible, falling back to the raw
// text, and returns a digest of the body for change detection.
func parseResponse(body []byte) (any, string) {
	digest := sha256.Sum256(body)
	hash := hex.EncodeToString(digest[:])

	var jsonData any

	err := json.Unmarshal(body, &jsonData)
	if err != nil {
		return string(body), hash
	}

	return jsonData, hash
}

func (t *Trigger) shouldFire(responseData any, hash string) bool {
	if t.Condition == conditionSpecificValue {
		return reflect.DeepEqual(responseData, t.ConditionValue)
	}

	return t.lastHash != "" && hash != t.lastHash
}

// Stop halts the poll loop. Stopping a trigger that is not running is a
// no-op.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	t.logger.InfoContext(ctx, "Stopping poll trigger")

	close(t.stopCh)
	t.wg.Wait()
	t.running = false

	return nil
}
