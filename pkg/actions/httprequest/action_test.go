package httprequest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewHTTPRequestActionFactory(t *testing.T) {
	factory := NewHTTPRequestActionFactory()
	assert.NotNil(t, factory)
	assert.Equal(t, "http_request", factory.ID())
	assert.Equal(t, "HTTP Request", factory.Name())
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
			name: "url only",
			config: map[string]any{
				"url": "https://api.example.com/users",
			},
			wantErr: false,
		},
		{
			name: "full config",
			config: map[string]any{
				"url":     "https://api.example.com/users",
				"method":  "post",
				"headers": map[string]any{"Content-Type": "application/json"},
				"body":    `{"name": "test"}`,
				"timeout": 5,
				"retry":   map[string]any{"attempts": float64(3), "delay": float64(100)},
			},
			wantErr: false,
		},
		{
			name:    "missing url",
			config:  map[string]any{},
			wantErr: true,
		},
		{
			name: "malformed url template",
			config: map[string]any{
				"url": "https://api.example.com/{{.broken",
			},
			wantErr: true,
		},
		{
			name: "malformed header template",
			config: map[string]any{
				"url":     "https://api.example.com",
				"headers": map[string]any{"Authorization": "{{.broken"},
			},
			wantErr: true,
		},
		{
			name: "malformed body template",
			config: map[string]any{
				"url":  "https://api.example.com",
				"body": "{{.broken",
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

func TestNewAction_Defaults(t *testing.T) {
	action, err := NewAction(map[string]any{
		"url": "https://api.example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, action.Method)
	assert.Equal(t, 30*time.Second, action.Timeout)
	assert.Equal(t, RetryConfig{Attempts: 1, Delay: 0}, action.Retry)
}

func TestNewAction_RetryParsing(t *testing.T) {
	// Decoded JSON carries float64, YAML carries int; both must work.
	action, err := NewAction(map[string]any{
		"url":   "https://api.example.com",
		"retry": map[string]any{"attempts": 4, "delay": 250},
	})
	require.NoError(t, err)
	assert.Equal(t, RetryConfig{Attempts: 4, Delay: 250}, action.Retry)

	action, err = NewAction(map[string]any{
		"url":   "https://api.example.com",
		"retry": map[string]any{"attempts": float64(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, action.Retry.Attempts)
}

func TestNewAction_MethodUppercased(t *testing.T) {
	action, err := NewAction(map[string]any{
		"url":    "https://api.example.com",
		"method": "delete",
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, action.Method)
}

func TestAction_Execute_GET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"users": [{"id": 1, "name": "Alice"}]}`)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url": server.URL,
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resultMap["status_code"])

	headers, ok := resultMap["headers"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "application/json", headers["Content-Type"])

	body, ok := resultMap["body"].(map[string]any)
	require.True(t, ok)
	users, ok := body["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 1)
}

func TestAction_Execute_TemplatedURL(t *testing.T) {
	var capturedPath atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath.Store(r.URL.Path)
		_, _ = io.WriteString(w, "{}")
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url": server.URL + "/users/{{.trigger_data.user_id}}",
	})
	require.NoError(t, err)

	execCtx := &models.ExecutionContext{
		TriggerData: map[string]any{"user_id": 77},
	}

	_, err = action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "/users/77", capturedPath.Load())
}

func TestAction_Execute_PostWithTemplatedBodyAndHeaders(t *testing.T) {
	type captured struct {
		auth string
		body map[string]any
	}

	var got atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any

		_ = json.NewDecoder(r.Body).Decode(&body)
		got.Store(captured{auth: r.Header.Get("Authorization"), body: body})
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"created": true}`)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url":     server.URL + "/orders",
		"method":  "POST",
		"headers": map[string]any{"Authorization": "Bearer {{.variables.token}}"},
		"body":    `{"order_id": "{{.trigger_data.order_id}}", "qty": 2}`,
	})
	require.NoError(t, err)

	execCtx := &models.ExecutionContext{
		TriggerData: map[string]any{"order_id": "ord-42"},
		Variables:   map[string]any{"token": "s3cret"},
	}

	result, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	request, ok := got.Load().(captured)
	require.True(t, ok)
	assert.Equal(t, "Bearer s3cret", request.auth)
	assert.Equal(t, map[string]any{"order_id": "ord-42", "qty": float64(2)}, request.body)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, resultMap["status_code"])
}

func TestAction_Execute_RetriesOnServerError(t *testing.T) {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		_, _ = io.WriteString(w, `{"ok": true}`)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url":   server.URL,
		"retry": map[string]any{"attempts": 3, "delay": 5},
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resultMap["status_code"])
	assert.Equal(t, int64(3), hits.Load())
}

func TestAction_Execute_LastAttemptReturnsServerError(t *testing.T) {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url":   server.URL,
		"retry": map[string]any{"attempts": 2, "delay": 5},
	})
	require.NoError(t, err)

	// The final attempt's response comes back as a result, error or not.
	result, err := action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, resultMap["status_code"])
	assert.Equal(t, int64(2), hits.Load())
}

func TestAction_Execute_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	deadURL := server.URL
	server.Close()

	action, err := NewAction(map[string]any{
		"url":   deadURL,
		"retry": map[string]any{"attempts": 2, "delay": 5},
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retry attempts failed")
}

func TestAction_Execute_NonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "plain text response")
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url": server.URL,
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), &models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "plain text response", resultMap["body"])
}

func TestHTTPRequestActionFactory_Create(t *testing.T) {
	factory := NewHTTPRequestActionFactory()

	action, err := factory.Create(map[string]any{
		"url": "https://api.example.com",
	})
	require.NoError(t, err)
	assert.IsType(t, &Action{}, action)

	_, err = factory.Create(nil)
	require.ErrorIs(t, err, ErrURLRequired)
}
