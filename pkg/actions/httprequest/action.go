// Package httprequest provides an action that performs an HTTP request with
// templated URL, headers and body.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/template"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrURLRequired is returned when the configuration has no url.
	ErrURLRequired = errors.New("http_request action requires a url")
	// ErrServerError marks a 5xx response that still has retry attempts left.
	ErrServerError = errors.New("server error during HTTP request")
)

// Action performs an HTTP request with optional headers, body and retry
// behavior. URL, header values and body support templating against the run
// context.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig bounds the retry loop: Attempts is the total number of tries,
// Delay the pause between them in milliseconds.
type RetryConfig struct {
	Attempts int
	Delay    int
}

func NewAction(config map[string]any) (*Action, error) {
	rawURL, _ := config["url"].(string)
	if rawURL == "" {
		return nil, ErrURLRequired
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)
	if headersVal, ok := config["headers"].(map[string]any); ok {
		for key, value := range headersVal {
			if s, ok := value.(string); ok {
				headers[key] = s
			}
		}
	}

	timeout := defaultTimeout

	switch v := config["timeout"].(type) {
	case float64:
		timeout = time.Duration(v * float64(time.Second))
	case int:
		timeout = time.Duration(v) * time.Second
	}

	retry := RetryConfig{Attempts: 1, Delay: 0}
	if retryVal, ok := config["retry"].(map[string]any); ok {
		retry = parseRetryConfig(retryVal)
	}

	action := &Action{
		URL:     rawURL,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		Retry:   retry,
	}

	err := action.validateTemplates()
	if err != nil {
		return nil, err
	}

	return action, nil
}

func parseRetryConfig(retryMap map[string]any) RetryConfig {
	retry := RetryConfig{Attempts: 1, Delay: 0}

	switch attempts := retryMap["attempts"].(type) {
	case float64:
		retry.Attempts = int(attempts)
	case int:
		retry.Attempts = attempts
	}

	switch delay := retryMap["delay"].(type) {
	case float64:
		retry.Delay = int(delay)
	case int:
		retry.Delay = delay
	}

	if retry.Attempts < 1 {
		retry.Attempts = 1
	}

	return retry
}

// validateTemplates parses every templated field so a broken expression
// fails at load time instead of mid-run.
func (a *Action) validateTemplates() error {
	_, err := template.Parse(a.URL)
	if err != nil {
		return fmt.Errorf("invalid url template: %w", err)
	}

	_, err = template.Parse(a.Body)
	if err != nil {
		return fmt.Errorf("invalid body template: %w", err)
	}

	for key, value := range a.Headers {
		_, err := template.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid header '%s' template: %w", key, err)
		}
	}

	return nil
}

// Execute performs the request, retrying on connection errors and 5xx
// responses until the attempts are exhausted, and returns the decoded
// response.
func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "http_request")
	logger.DebugContext(ctx, "Executing HTTP request action")

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Retrying HTTP request", "attempt", attempt, "of", a.Retry.Attempts)
			time.Sleep(time.Duration(a.Retry.Delay) * time.Millisecond)
		}

		req, err := a.buildRequest(ctx, executionCtx)
		if err != nil {
			return nil, err
		}

		client := &http.Client{Timeout: a.Timeout}

		resp, err = client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			resp = nil

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < a.Retry.Attempts {
			err = resp.Body.Close()
			if err != nil {
				logger.ErrorContext(ctx, "Failed to close response body", "error", err)
			}

			lastErr = fmt.Errorf("server error (status %d), retrying: %w", resp.StatusCode, ErrServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) buildRequest(ctx context.Context, executionCtx *models.ExecutionContext) (*http.Request, error) {
	urlResult, err := template.RenderWithContext(a.URL, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	requestURL := fmt.Sprintf("%v", urlResult)

	bodyReader, err := a.buildRequestBody(executionCtx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	err = a.setRequestHeaders(req, executionCtx)
	if err != nil {
		return nil, err
	}

	return req, nil
}

func (a *Action) buildRequestBody(executionCtx *models.ExecutionContext) (io.Reader, error) {
	if a.Body == "" {
		return nil, nil
	}

	body, err := template.RenderWithContext(a.Body, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body template: %w", err)
	}

	if str, ok := body.(string); ok {
		return strings.NewReader(str), nil
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	return strings.NewReader(string(bodyBytes)), nil
}

func (a *Action) setRequestHeaders(req *http.Request, executionCtx *models.ExecutionContext) error {
	for key, value := range a.Headers {
		headerResult, err := template.RenderWithContext(value, executionCtx)
		if err != nil {
			return fmt.Errorf("failed to render header '%s' template: %w", key, err)
		}

		req.Header.Set(key, fmt.Sprintf("%v", headerResult))
	}

	return nil
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	logger.InfoContext(ctx, "HTTP request action completed",
		"status_code", resp.StatusCode,
		"body_length", len(bodyBytes),
	)

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headers,
	}, nil
}
