package schedule

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func TestNewTrigger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name         string
		config       map[string]any
		expectError  bool
		expectedCron string
	}{
		{
			name: "valid cron expression",
			config: map[string]any{
				"id":          "test-schedule-1",
				"cron":        "*/5 * * * *",
				"workflow_id": "workflow-123",
			},
			expectedCron: "*/5 * * * *",
		},
		{
			name: "interval translated to descriptor",
			config: map[string]any{
				"id":          "test-schedule-2",
				"interval":    "every 5 minutes",
				"workflow_id": "workflow-456",
			},
			expectedCron: "@every 5m",
		},
		{
			name: "daily interval with time of day",
			config: map[string]any{
				"id":          "test-schedule-3",
				"interval":    "every 1 day at 09:00",
				"workflow_id": "workflow-789",
			},
			expectedCron: "0 9 * * *",
		},
		{
			name: "cron and interval together",
			config: map[string]any{
				"id":          "test-both",
				"cron":        "* * * * *",
				"interval":    "every 5 minutes",
				"workflow_id": "workflow-both",
			},
			expectError: true,
		},
		{
			name: "invalid cron expression",
			config: map[string]any{
				"id":          "test-invalid",
				"cron":        "invalid cron",
				"workflow_id": "workflow-error",
			},
			expectError: true,
		},
		{
			name: "invalid interval expression",
			config: map[string]any{
				"id":          "test-bad-interval",
				"interval":    "whenever you feel like it",
				"workflow_id": "workflow-error",
			},
			expectError: true,
		},
		{
			name: "missing schedule",
			config: map[string]any{
				"id":          "test-no-cron",
				"workflow_id": "workflow-no-cron",
			},
			expectError: true,
		},
		{
			name: "missing id",
			config: map[string]any{
				"cron": "*/5 * * * *",
			},
			expectError: true,
		},
		{
			name:        "empty config",
			config:      map[string]any{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger(tt.config, logger)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, trigger)
			} else {
				require.NoError(t, err)
				require.NotNil(t, trigger)
				assert.Equal(t, tt.expectedCron, trigger.CronExpr)
				assert.True(t, trigger.Enabled)
				assert.NotNil(t, trigger.logger)
			}
		})
	}
}

func TestTranslateInterval(t *testing.T) {
	tests := []struct {
		interval    string
		expected    string
		expectError bool
	}{
		{interval: "every 5 minutes", expected: "@every 5m"},
		{interval: "every minute", expected: "@every 1m"},
		{interval: "every 30 seconds", expected: "@every 30s"},
		{interval: "every 2 hours", expected: "@every 2h"},
		{interval: "every 1 hour", expected: "@every 1h"},
		{interval: "every 1 day", expected: "@every 24h"},
		{interval: "every 3 days", expected: "@every 72h"},
		{interval: "every 1 day at 09:00", expected: "0 9 * * *"},
		{interval: "every day at 23:59", expected: "59 23 * * *"},
		{interval: "EVERY 15 Minutes", expected: "@every 15m"},
		{interval: "  every 1 hour  ", expected: "@every 1h"},
		{interval: "every 2 days at 09:00", expectError: true},
		{interval: "every hour at 09:00", expectError: true},
		{interval: "every 1 day at 24:00", expectError: true},
		{interval: "every 1 day at 09:60", expectError: true},
		{interval: "every 0 minutes", expectError: true},
		{interval: "every fortnight", expectError: true},
		{interval: "5 minutes", expectError: true},
		{interval: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			translated, err := translateInterval(tt.interval)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, translated)
			}
		})
	}
}

func TestTrigger_StartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	config := map[string]any{
		"id":          "test-start-stop",
		"cron":        "@every 50ms",
		"workflow_id": "workflow-start-stop",
	}

	trigger, err := NewTrigger(config, logger)
	require.NoError(t, err)
	require.NotNil(t, trigger)

	ctx := context.Background()

	var (
		mu            sync.Mutex
		callbackCount int
	)

	callback := func(_ context.Context, _ map[string]any) error {
		mu.Lock()
		defer mu.Unlock()

		callbackCount++

		return nil
	}

	err = trigger.Start(ctx, callback)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return callbackCount >= 2
	}, 2*time.Second, 10*time.Millisecond)

	err = trigger.Stop(ctx)
	require.NoError(t, err)

	mu.Lock()
	stoppedCount := callbackCount
	mu.Unlock()

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	afterStopCount := callbackCount
	mu.Unlock()

	// A firing already in flight when Stop returned may still land, but the
	// schedule must not keep producing new ones.
	assert.LessOrEqual(t, afterStopCount-stoppedCount, 1)
}

func TestTrigger_Stop_Idempotent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	config := map[string]any{
		"id":          "test-idempotent",
		"cron":        "* * * * *",
		"workflow_id": "workflow-idempotent",
	}

	trigger, err := NewTrigger(config, logger)
	require.NoError(t, err)

	ctx := context.Background()

	// Stopping a trigger that never started is a no-op
	assert.NoError(t, trigger.Stop(ctx))

	callback := func(_ context.Context, _ map[string]any) error { return nil }

	require.NoError(t, trigger.Start(ctx, callback))

	// Starting twice is tolerated
	assert.NoError(t, trigger.Start(ctx, callback))

	assert.NoError(t, trigger.Stop(ctx))
	assert.NoError(t, trigger.Stop(ctx))
}

func TestTrigger_CallbackData(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	config := map[string]any{
		"id":          "test-callback-data",
		"cron":        "@every 50ms",
		"workflow_id": "workflow-callback",
	}

	trigger, err := NewTrigger(config, logger)
	require.NoError(t, err)

	ctx := context.Background()

	var (
		mu           sync.Mutex
		receivedData map[string]any
	)

	callback := func(_ context.Context, data map[string]any) error {
		mu.Lock()
		defer mu.Unlock()

		if receivedData == nil {
			receivedData = data
		}

		return nil
	}

	require.NoError(t, trigger.Start(ctx, callback))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return receivedData != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, trigger.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "test-callback-data", receivedData["trigger_id"])

	timestamp, ok := receivedData["timestamp"].(string)
	require.True(t, ok)

	_, err = time.Parse(time.RFC3339, timestamp)
	assert.NoError(t, err)
}

func TestTrigger_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	config := map[string]any{
		"id":          "test-disabled",
		"cron":        "@every 50ms",
		"workflow_id": "workflow-disabled",
		"enabled":     false,
	}

	trigger, err := NewTrigger(config, logger)
	require.NoError(t, err)
	assert.False(t, trigger.Enabled)

	ctx := context.Background()

	var (
		mu     sync.Mutex
		called bool
	)

	callback := func(_ context.Context, _ map[string]any) error {
		mu.Lock()
		defer mu.Unlock()

		called = true

		return nil
	}

	require.NoError(t, trigger.Start(ctx, callback))

	time.Sleep(200 * time.Millisecond)

	require.NoError(t, trigger.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()

	assert.False(t, called)
}

func TestScheduleTriggerFactory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	factory := NewScheduleTriggerFactory()

	assert.Equal(t, "schedule", factory.ID())
	assert.Equal(t, "Schedule", factory.Name())
	assert.NotEmpty(t, factory.Description())
	assert.NotNil(t, factory.Schema())

	trigger, err := factory.Create(map[string]any{
		"id":          "factory-made",
		"interval":    "every 10 minutes",
		"workflow_id": "workflow-factory",
	}, logger)
	require.NoError(t, err)

	var _ protocol.Trigger = trigger

	_, err = factory.Create(nil, logger)
	assert.ErrorIs(t, err, ErrConfigNil)
}
