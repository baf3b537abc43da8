package types

import (
	"fmt"
	"sort"
	"time"
)

// WorkerIdentity identifies the compute instance this process runs on.
// It is resolved once from the metadata server and never changes afterward.
type WorkerIdentity struct {
	Project  string `json:"project"`
	Zone     string `json:"zone"`
	Instance string `json:"instance"`
}

// String returns the fully qualified instance path used in logs and
// deletion requests.
func (id WorkerIdentity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Project, id.Zone, id.Instance)
}

// Valid reports whether all three identity fields are set.
func (id WorkerIdentity) Valid() bool {
	return id.Project != "" && id.Zone != "" && id.Instance != ""
}

// TaskConfig holds the task parameters resolved from instance metadata.
// It is built once by the resolver and read-only afterward; stages receive
// the same TaskConfig and can never mutate it.
type TaskConfig struct {
	values map[string]string
}

// NewTaskConfig builds a TaskConfig from resolved key/value pairs.
// The input map is copied so later mutation of it cannot leak in.
func NewTaskConfig(values map[string]string) TaskConfig {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return TaskConfig{values: copied}
}

// Value returns the value for key, or the empty string if the key was not
// resolved.
func (c TaskConfig) Value(key string) string {
	return c.values[key]
}

// Lookup returns the value for key and whether the key was resolved.
func (c TaskConfig) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the resolved keys in sorted order.
func (c TaskConfig) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of resolved keys.
func (c TaskConfig) Len() int {
	return len(c.values)
}

// LifecycleState represents where the worker is in its run.
type LifecycleState string

const (
	StateInitializing     LifecycleState = "initializing"
	StateWaitingReadiness LifecycleState = "waiting_readiness"
	StateResolvingConfig  LifecycleState = "resolving_config"
	StateFetchingStages   LifecycleState = "fetching_stages"
	StateRunning          LifecycleState = "running"
	StateCompleted        LifecycleState = "completed"
	StateFailed           LifecycleState = "failed"
	StateTerminating      LifecycleState = "terminating"
)

// stateOrder encodes the forward-only progression of the lifecycle.
// Terminating sits outside the ordering: it is reachable from every state.
var stateOrder = map[LifecycleState]int{
	StateInitializing:     0,
	StateWaitingReadiness: 1,
	StateResolvingConfig:  2,
	StateFetchingStages:   3,
	StateRunning:          4,
	StateCompleted:        5,
	StateFailed:           5,
}

// CanTransition reports whether moving from one state to another is legal.
// Transitions are strictly forward; StateTerminating is reachable from any
// state but is itself terminal.
func CanTransition(from, to LifecycleState) bool {
	if from == StateTerminating {
		return false
	}
	if to == StateTerminating {
		return true
	}
	fromOrder, ok := stateOrder[from]
	if !ok {
		return false
	}
	toOrder, ok := stateOrder[to]
	if !ok {
		return false
	}
	// Completed and Failed share an order slot but exclude each other.
	return toOrder > fromOrder
}

// Terminal reports whether the state ends the pipeline portion of the run.
func (s LifecycleState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTerminating
}

// RunRecord is the journal's top-level record for a single worker run.
type RunRecord struct {
	ID         string         `json:"id"`
	Identity   WorkerIdentity `json:"identity"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	State      LifecycleState `json:"state"`
	Error      string         `json:"error,omitempty"`
	ExitCode   int            `json:"exit_code"`
}

// TransitionRecord captures one lifecycle state transition.
type TransitionRecord struct {
	RunID string         `json:"run_id"`
	Seq   int            `json:"seq"`
	From  LifecycleState `json:"from"`
	To    LifecycleState `json:"to"`
	At    time.Time      `json:"at"`
}

// StageRecord captures the outcome of one pipeline stage.
type StageRecord struct {
	RunID      string        `json:"run_id"`
	Index      int           `json:"index"`
	Name       string        `json:"name"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Succeeded  bool          `json:"succeeded"`
	Error      string        `json:"error,omitempty"`
}
