package logaction

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLogActionFactory(t *testing.T) {
	factory := NewLogActionFactory()
	assert.NotNil(t, factory)
	assert.Equal(t, "log", factory.ID())
	assert.Equal(t, "Log", factory.Name())
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
			name: "message only",
			config: map[string]any{
				"message": "workflow started",
			},
			wantErr: false,
		},
		{
			name: "message with level",
			config: map[string]any{
				"message": "something odd",
				"level":   "warn",
			},
			wantErr: false,
		},
		{
			name:    "missing message",
			config:  map[string]any{},
			wantErr: true,
		},
		{
			name: "unknown level",
			config: map[string]any{
				"message": "hello",
				"level":   "critical",
			},
			wantErr: true,
		},
		{
			name: "malformed template",
			config: map[string]any{
				"message": "{{.broken",
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

func TestAction_Execute_RendersTemplate(t *testing.T) {
	action := &Action{
		Message: "order {{.trigger_data.order_id}} has {{.action_results.count.total}} items",
		Level:   "info",
	}

	execCtx := &models.ExecutionContext{
		TriggerData: map[string]any{
			"order_id": "ord-42",
		},
		ActionResults: map[string]any{
			"count": map[string]any{"total": 3},
		},
	}

	result, err := action.Execute(context.Background(), execCtx, testLogger())

	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order ord-42 has 3 items", resultMap["message"])
	assert.Equal(t, "info", resultMap["level"])
}

func TestAction_Execute_WritesAtLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	action := &Action{
		Message: "retrying upstream call",
		Level:   "warn",
	}

	_, err := action.Execute(context.Background(), &models.ExecutionContext{}, logger)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "retrying upstream call")
}

func TestAction_Execute_BrokenTemplate(t *testing.T) {
	action := &Action{
		Message: "{{.trigger_data.a.b}}",
		Level:   "info",
	}

	execCtx := &models.ExecutionContext{
		TriggerData: map[string]any{
			"a": "not a map",
		},
	}

	_, err := action.Execute(context.Background(), execCtx, testLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render message template")
}

func TestLogActionFactory_Create(t *testing.T) {
	factory := NewLogActionFactory()

	action, err := factory.Create(map[string]any{
		"message": "hello",
	})
	require.NoError(t, err)
	assert.NotNil(t, action)

	_, err = factory.Create(nil)
	require.Error(t, err)
}
