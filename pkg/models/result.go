package models

import "time"

// ActionStatus is the outcome of one action within one run.
type ActionStatus string

const (
	ActionStatusSucceeded ActionStatus = "succeeded"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

// ActionResult records what happened to a single action during a run.
// Value is set on success, Error on failure, and skipped actions carry the
// reason they never ran.
type ActionResult struct {
	ActionID   string       `json:"action_id"`
	Status     ActionStatus `json:"status"`
	Value      any          `json:"value,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at,omitempty"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
}

// RunResult is what one engine run returns: the per-action outcome map
// plus the run metadata. A run with failed actions is still a completed
// run; callers inspect the map to decide overall success.
type RunResult struct {
	RunID      string                   `json:"run_id"`
	WorkflowID string                   `json:"workflow_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Actions    map[string]*ActionResult `json:"actions"`
}

// NewRunResult starts an empty result for the given context.
func NewRunResult(ec *ExecutionContext) *RunResult {
	return &RunResult{
		RunID:      ec.ID,
		WorkflowID: ec.WorkflowID,
		StartedAt:  ec.StartedAt,
		Actions:    make(map[string]*ActionResult),
	}
}

// Succeeded reports whether every action of the run succeeded. An empty
// run counts as succeeded.
func (r *RunResult) Succeeded() bool {
	for _, res := range r.Actions {
		if res.Status != ActionStatusSucceeded {
			return false
		}
	}

	return true
}

// CountByStatus returns how many actions finished with the given status.
func (r *RunResult) CountByStatus(status ActionStatus) int {
	count := 0

	for _, res := range r.Actions {
		if res.Status == status {
			count++
		}
	}

	return count
}
