package poll

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fireRecorder struct {
	mu    sync.Mutex
	fires []map[string]any
}

func (r *fireRecorder) callback(_ context.Context, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fires = append(r.fires, data)

	return nil
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.fires)
}

func (r *fireRecorder) last() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.fires) == 0 {
		return nil
	}

	return r.fires[len(r.fires)-1]
}

func TestNewTrigger(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{
			name: "valid config",
			config: map[string]any{
				"id":  "trigger-1",
				"url": "https://api.example.com/status",
			},
			wantErr: false,
		},
		{
			name: "full config",
			config: map[string]any{
				"id":       "trigger-1",
				"url":      "https://api.example.com/status",
				"method":   "post",
				"headers":  map[string]any{"Authorization": "Bearer token"},
				"interval": 30,
				"enabled":  true,
			},
			wantErr: false,
		},
		{
			name: "missing url",
			config: map[string]any{
				"id": "trigger-1",
			},
			wantErr: true,
		},
		{
			name: "missing id",
			config: map[string]any{
				"url": "https://api.example.com/status",
			},
			wantErr: true,
		},
		{
			name: "url without http scheme",
			config: map[string]any{
				"id":  "trigger-1",
				"url": "ftp://files.example.com",
			},
			wantErr: true,
		},
		{
			name: "zero interval",
			config: map[string]any{
				"id":       "trigger-1",
				"url":      "https://api.example.com/status",
				"interval": 0,
			},
			wantErr: true,
		},
		{
			name: "unknown condition",
			config: map[string]any{
				"id":        "trigger-1",
				"url":       "https://api.example.com/status",
				"condition": "jmespath",
			},
			wantErr: true,
		},
		{
			name: "specific_value without condition_value",
			config: map[string]any{
				"id":        "trigger-1",
				"url":       "https://api.example.com/status",
				"condition": "specific_value",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger(tt.config, testLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, trigger)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, trigger)
		})
	}
}

func TestNewTrigger_Defaults(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{
		"id":  "trigger-1",
		"url": "https://api.example.com/status",
	}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, trigger.Method)
	assert.Equal(t, 60*time.Second, trigger.Interval)
	assert.Equal(t, "any_change", trigger.Condition)
	assert.True(t, trigger.Enabled)
}

func TestNewTrigger_MethodUppercased(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{
		"id":     "trigger-1",
		"url":    "https://api.example.com/status",
		"method": "post",
	}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, trigger.Method)
}

func TestTrigger_FiresOnChange(t *testing.T) {
	var (
		mu   sync.Mutex
		body = `{"version": 1}`
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = io.WriteString(w, body)
	}))
	defer server.Close()

	trigger, err := NewTrigger(map[string]any{
		"id":       "trigger-1",
		"url":      server.URL,
		"interval": 0.05,
	}, testLogger())
	require.NoError(t, err)

	recorder := &fireRecorder{}
	ctx := context.Background()

	require.NoError(t, trigger.Start(ctx, recorder.callback))
	defer trigger.Stop(ctx)

	// The first poll is a baseline; a stable body never fires.
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, recorder.count())

	mu.Lock()
	body = `{"version": 2}`
	mu.Unlock()

	require.Eventually(t, func() bool {
		return recorder.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	fired := recorder.last()
	assert.Equal(t, server.URL, fired["url"])
	assert.Equal(t, http.StatusOK, fired["status_code"])
	assert.Equal(t, map[string]any{"version": float64(2)}, fired["response"])

	// The changed body becomes the new baseline.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, recorder.count())
}

func TestTrigger_SpecificValue(t *testing.T) {
	var (
		mu   sync.Mutex
		body = "pending"
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = io.WriteString(w, body)
	}))
	defer server.Close()

	trigger, err := NewTrigger(map[string]any{
		"id":              "trigger-1",
		"url":             server.URL,
		"interval":        0.05,
		"condition":       "specific_value",
		"condition_value": "ready",
	}, testLogger())
	require.NoError(t, err)

	recorder := &fireRecorder{}
	ctx := context.Background()

	require.NoError(t, trigger.Start(ctx, recorder.callback))
	defer trigger.Stop(ctx)

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, recorder.count())

	mu.Lock()
	body = "ready"
	mu.Unlock()

	// specific_value keeps firing for as long as the response matches.
	require.Eventually(t, func() bool {
		return recorder.count() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "ready", recorder.last()["response"])
}

func TestTrigger_SendsHeaders(t *testing.T) {
	var capturedKey atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedKey.Store(r.Header.Get("X-Api-Key"))
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	trigger, err := NewTrigger(map[string]any{
		"id":       "trigger-1",
		"url":      server.URL,
		"interval": 0.05,
		"headers":  map[string]any{"X-Api-Key": "secret"},
	}, testLogger())
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, trigger.Start(ctx, func(context.Context, map[string]any) error {
		return nil
	}))
	defer trigger.Stop(ctx)

	require.Eventually(t, func() bool {
		return capturedKey.Load() == "secret"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTrigger_RestartBaselinesAgain(t *testing.T) {
	var (
		mu   sync.Mutex
		body = "first"
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = io.WriteString(w, body)
	}))
	defer server.Close()

	trigger, err := NewTrigger(map[string]any{
		"id":       "trigger-1",
		"url":      server.URL,
		"interval": 0.05,
	}, testLogger())
	require.NoError(t, err)

	recorder := &fireRecorder{}
	ctx := context.Background()

	require.NoError(t, trigger.Start(ctx, recorder.callback))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, trigger.Stop(ctx))

	mu.Lock()
	body = "second"
	mu.Unlock()

	// The body changed while stopped, so the restart baselines fresh
	// instead of firing.
	require.NoError(t, trigger.Start(ctx, recorder.callback))
	defer trigger.Stop(ctx)

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, recorder.count())
}

func TestTrigger_StopWithoutStart(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{
		"id":  "trigger-1",
		"url": "https://api.example.com/status",
	}, testLogger())
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, trigger.Stop(ctx))
	require.NoError(t, trigger.Stop(ctx))
}

func TestTrigger_Disabled(t *testing.T) {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	trigger, err := NewTrigger(map[string]any{
		"id":       "trigger-1",
		"url":      server.URL,
		"interval": 0.05,
		"enabled":  false,
	}, testLogger())
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, trigger.Start(ctx, func(context.Context, map[string]any) error {
		return nil
	}))

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, hits.Load())
}

func TestPollTriggerFactory(t *testing.T) {
	factory := NewPollTriggerFactory()

	assert.Equal(t, "poll", factory.ID())
	assert.Equal(t, "Poll", factory.Name())
	assert.NotEmpty(t, factory.Description())

	schema := factory.Schema()
	require.NotNil(t, schema)
	assert.Contains(t, schema, "properties")
	assert.Contains(t, schema, "required")

	trigger, err := factory.Create(map[string]any{
		"id":  "trigger-1",
		"url": "https://api.example.com/status",
	}, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, trigger)

	_, err = factory.Create(nil, testLogger())
	require.ErrorIs(t, err, ErrConfigNil)
}
