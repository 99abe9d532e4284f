package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/taskmaster/pkg/channels/gochannel"
	"github.com/taskmaster-io/taskmaster/pkg/eventbus"
	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()

	logger := testLogger()

	return NewRunner(logger, NewExecutor(logger, nil), nil)
}

func TestNewRunner(t *testing.T) {
	runner := newTestRunner(t)

	assert.True(t, strings.HasPrefix(runner.ID(), "runner-"))
	assert.Empty(t, runner.List())
}

func TestRunner_Register_DuplicateID(t *testing.T) {
	runner := newTestRunner(t)

	original := New("wf-1", "Original", "")
	require.NoError(t, runner.Register(original))

	err := runner.Register(New("wf-1", "Impostor", ""))
	require.Error(t, err)
	assert.True(t, IsDuplicateID(err))

	wf, err := runner.Get("wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Original", wf.Name())
}

func TestRunner_Register_Concurrent(t *testing.T) {
	runner := newTestRunner(t)

	var (
		wg        sync.WaitGroup
		successMu sync.Mutex
		successes int
	)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := runner.Register(New("wf-contended", "Contended", "")); err == nil {
				successMu.Lock()
				successes++
				successMu.Unlock()
			}
		}()
	}

	wg.Wait()

	// Exactly one of the racing registrations wins.
	assert.Equal(t, 1, successes)
	assert.Len(t, runner.List(), 1)
}

func TestRunner_Get_NotFound(t *testing.T) {
	runner := newTestRunner(t)

	wf, err := runner.Get("ghost")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Nil(t, wf)
}

func TestRunner_Unregister(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	trigger := &fakeTrigger{}
	wf := New("wf-1", "Test Workflow", "")
	require.NoError(t, wf.AddTrigger(NewTrigger("t1", "", trigger)))
	require.NoError(t, runner.Register(wf))
	require.NoError(t, runner.Start(ctx, "wf-1"))

	err := runner.Unregister(ctx, "wf-1")
	require.NoError(t, err)

	// The workflow was deactivated on the way out.
	assert.Equal(t, 1, trigger.stops())
	assert.False(t, wf.IsActive())

	_, err = runner.Get("wf-1")
	assert.True(t, IsNotFound(err))

	err = runner.Unregister(ctx, "wf-1")
	assert.True(t, IsNotFound(err))
}

func TestRunner_StartStop(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	trigger := &fakeTrigger{}
	wf := New("wf-1", "Test Workflow", "")
	require.NoError(t, wf.AddTrigger(NewTrigger("t1", "", trigger)))
	require.NoError(t, runner.Register(wf))

	require.NoError(t, runner.Start(ctx, "wf-1"))
	assert.True(t, wf.IsActive())
	assert.Equal(t, 1, trigger.starts())

	require.NoError(t, runner.Stop(ctx, "wf-1"))
	assert.False(t, wf.IsActive())
	assert.Equal(t, 1, trigger.stops())

	// Stopping again is a no-op, not an error.
	require.NoError(t, runner.Stop(ctx, "wf-1"))
	assert.Equal(t, 1, trigger.stops())

	err := runner.Start(ctx, "ghost")
	assert.True(t, IsNotFound(err))
}

func TestRunner_StartAll_StopAll(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	first := &fakeTrigger{}
	second := &fakeTrigger{}

	wfA := New("wf-a", "Workflow A", "")
	require.NoError(t, wfA.AddTrigger(NewTrigger("t1", "", first)))
	wfB := New("wf-b", "Workflow B", "")
	require.NoError(t, wfB.AddTrigger(NewTrigger("t1", "", second)))

	require.NoError(t, runner.Register(wfA))
	require.NoError(t, runner.Register(wfB))

	require.NoError(t, runner.StartAll(ctx))
	assert.True(t, wfA.IsActive())
	assert.True(t, wfB.IsActive())

	require.NoError(t, runner.StopAll(ctx))
	assert.False(t, wfA.IsActive())
	assert.False(t, wfB.IsActive())
	assert.Equal(t, 1, first.stops())
	assert.Equal(t, 1, second.stops())
}

func TestRunner_RunNow_InactiveWorkflow(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	var (
		mu       sync.Mutex
		executed []string
	)

	wf := New("wf-1", "Test Workflow", "")
	require.NoError(t, wf.AddAction(NewAction("only", "", recordingAction("only", &executed, &mu))))
	require.NoError(t, runner.Register(wf))

	// Never activated; RunNow must work regardless.
	result, err := runner.RunNow(ctx, "wf-1", map[string]any{"source": "manual"})

	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, []string{"only"}, executed)
	assert.False(t, wf.IsActive())
}

func TestRunner_RunNow_NotFound(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	result, err := runner.RunNow(ctx, "ghost", nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Nil(t, result)
}

func TestRunner_List(t *testing.T) {
	runner := newTestRunner(t)

	require.NoError(t, runner.Register(New("wf-c", "Gamma", "")))
	require.NoError(t, runner.Register(New("wf-a", "Alpha", "")))
	require.NoError(t, runner.Register(New("wf-b", "Beta", "")))

	summaries := runner.List()
	require.Len(t, summaries, 3)
	assert.Equal(t, "wf-a", summaries[0].ID)
	assert.Equal(t, "wf-b", summaries[1].ID)
	assert.Equal(t, "wf-c", summaries[2].ID)

	status, err := runner.Status("wf-b")
	require.NoError(t, err)
	assert.Equal(t, "Beta", status.Name)
	assert.False(t, status.Active)
}

func TestRunner_TriggerInitiatedRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := testLogger()

	pub, sub, err := gochannel.CreateTestChannel(nil)
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer bus.Close()

	executor := NewExecutor(logger, nil)
	runner := NewRunner(logger, executor, bus)

	var (
		mu   sync.Mutex
		seen []string
	)

	trigger := &fakeTrigger{}
	wf := New("wf-payments", "Payments", "")
	require.NoError(t, wf.AddAction(NewAction("capture", "", protocol.ActionFunc(
		func(_ context.Context, executionCtx *models.ExecutionContext, _ *slog.Logger) (any, error) {
			mu.Lock()
			defer mu.Unlock()

			seen = append(seen, executionCtx.TriggerData["payment_id"].(string))

			return nil, nil
		}))))
	require.NoError(t, wf.AddTrigger(NewTrigger("t-webhook", "", trigger)))
	require.NoError(t, runner.Register(wf))

	require.NoError(t, runner.Subscribe(ctx))
	require.NoError(t, runner.Start(ctx, "wf-payments"))

	// The trigger fires; the runner consumes the event and runs the
	// workflow without the trigger waiting on it.
	require.NoError(t, trigger.Fire(ctx, map[string]any{"payment_id": "pay-123"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(seen) == 1 && seen[0] == "pay-123"
	}, 5*time.Second, 10*time.Millisecond)
}
