package workflow

import (
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

// Action is one executable node of a workflow graph: the execute
// capability plus the identity the graph tracks it under.
type Action struct {
	ID      string
	Name    string
	Handler protocol.Action
}

// NewAction wraps an executable into a graph node. A missing id is
// generated; a missing name is derived from the id.
func NewAction(id, name string, handler protocol.Action) *Action {
	if id == "" {
		id = uuid.New().String()
	}

	if name == "" {
		name = "action_" + shortID(id)
	}

	return &Action{ID: id, Name: name, Handler: handler}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

// Graph owns the action set and the dependency edges of one workflow. It
// is the single source of truth for both: every edge references member
// actions, and the graph stays acyclic at all times. All operations are
// safe for concurrent use; order computation takes a read lock so a run
// never observes a half-applied mutation.
type Graph struct {
	workflowID string

	mu         sync.RWMutex
	actions    map[string]*Action
	order      []string            // action ids in insertion order
	deps       map[string][]string // action id -> ids it depends on, in add order
	dependents map[string][]string // action id -> ids that depend on it
}

// NewGraph creates an empty graph owned by the given workflow.
func NewGraph(workflowID string) *Graph {
	return &Graph{
		workflowID: workflowID,
		actions:    make(map[string]*Action),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
}

// AddAction registers an action under its id.
func (g *Graph) AddAction(action *Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.actions[action.ID]; exists {
		return NewDuplicateIDError("AddAction", g.workflowID, action.ID)
	}

	g.actions[action.ID] = action
	g.order = append(g.order, action.ID)

	return nil
}

// AddDependency records that actionID must execute after dependencyID.
// The edge is committed only if the graph stays acyclic; on failure the
// graph is unchanged. Re-adding an existing edge is a no-op.
func (g *Graph) AddDependency(actionID, dependencyID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.actions[actionID]; !exists {
		return NewUnknownActionError("AddDependency", g.workflowID, actionID)
	}

	if _, exists := g.actions[dependencyID]; !exists {
		return NewUnknownActionError("AddDependency", g.workflowID, dependencyID)
	}

	if actionID == dependencyID {
		return NewCycleError("AddDependency", g.workflowID, actionID, dependencyID)
	}

	for _, existing := range g.deps[actionID] {
		if existing == dependencyID {
			return nil
		}
	}

	// Tentatively add the edge; roll back if it closes a cycle.
	g.deps[actionID] = append(g.deps[actionID], dependencyID)
	g.dependents[dependencyID] = append(g.dependents[dependencyID], actionID)

	if _, err := g.topologicalOrderLocked(); err != nil {
		g.deps[actionID] = g.deps[actionID][:len(g.deps[actionID])-1]
		g.dependents[dependencyID] = g.dependents[dependencyID][:len(g.dependents[dependencyID])-1]

		return NewCycleError("AddDependency", g.workflowID, actionID, dependencyID)
	}

	return nil
}

// TopologicalOrder returns the actions in an order where every action
// appears after all of its dependencies. Actions with no ordering
// constraint between them keep their insertion order, so the result is
// deterministic for a given construction history.
func (g *Graph) TopologicalOrder() ([]*Action, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.topologicalOrderLocked()
}

// topologicalOrderLocked runs Kahn's algorithm. Callers must hold at
// least a read lock.
func (g *Graph) topologicalOrderLocked() ([]*Action, error) {
	position := make(map[string]int, len(g.order))
	for i, id := range g.order {
		position[id] = i
	}

	inDegree := make(map[string]int, len(g.actions))
	ready := make([]string, 0, len(g.actions))

	for _, id := range g.order {
		inDegree[id] = len(g.deps[id])
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]*Action, 0, len(g.actions))

	for len(ready) > 0 {
		// Earliest-inserted ready action runs first.
		next := 0
		for i := 1; i < len(ready); i++ {
			if position[ready[i]] < position[ready[next]] {
				next = i
			}
		}

		id := ready[next]
		ready = append(ready[:next], ready[next+1:]...)
		sorted = append(sorted, g.actions[id])

		for _, dependent := range g.dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(sorted) != len(g.actions) {
		return nil, &GraphError{Op: "TopologicalOrder", WorkflowID: g.workflowID, Err: ErrCycle}
	}

	return sorted, nil
}

// Actions returns the actions in insertion order.
func (g *Graph) Actions() []*Action {
	g.mu.RLock()
	defer g.mu.RUnlock()

	actions := make([]*Action, 0, len(g.order))
	for _, id := range g.order {
		actions = append(actions, g.actions[id])
	}

	return actions
}

// Action returns the action registered under id.
func (g *Graph) Action(id string) (*Action, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	action, ok := g.actions[id]

	return action, ok
}

// Dependencies returns the ids the given action depends on, in the order
// they were added.
func (g *Graph) Dependencies(actionID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps := make([]string, len(g.deps[actionID]))
	copy(deps, g.deps[actionID])

	return deps
}

// Dependents returns the ids of actions depending on the given action.
func (g *Graph) Dependents(actionID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dependents := make([]string, len(g.dependents[actionID]))
	copy(dependents, g.dependents[actionID])

	return dependents
}

// Len returns the number of registered actions.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.actions)
}
