package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTaskConfigImmutable verifies the source map cannot mutate the config.
func TestTaskConfigImmutable(t *testing.T) {
	src := map[string]string{"folders": "1/2024-1-1/"}
	cfg := NewTaskConfig(src)

	src["folders"] = "changed"
	src["extra"] = "nope"

	assert.Equal(t, "1/2024-1-1/", cfg.Value("folders"))
	_, ok := cfg.Lookup("extra")
	assert.False(t, ok)
	assert.Equal(t, 1, cfg.Len())
}

func TestTaskConfigLookup(t *testing.T) {
	cfg := NewTaskConfig(map[string]string{"a": "1", "b": ""})

	v, ok := cfg.Lookup("b")
	assert.True(t, ok, "empty value is still resolved")
	assert.Equal(t, "", v)

	_, ok = cfg.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, cfg.Keys())
}

// TestCanTransition exercises the forward-only transition table.
func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from LifecycleState
		to   LifecycleState
		want bool
	}{
		{"forward step", StateInitializing, StateWaitingReadiness, true},
		{"skip ahead", StateWaitingReadiness, StateRunning, true},
		{"backward", StateRunning, StateResolvingConfig, false},
		{"self", StateRunning, StateRunning, false},
		{"completed to failed", StateCompleted, StateFailed, false},
		{"failed to completed", StateFailed, StateCompleted, false},
		{"any to terminating", StateInitializing, StateTerminating, true},
		{"failed to terminating", StateFailed, StateTerminating, true},
		{"terminating is terminal", StateTerminating, StateCompleted, false},
		{"terminating twice", StateTerminating, StateTerminating, false},
		{"unknown state", LifecycleState("bogus"), StateRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestWorkerIdentity(t *testing.T) {
	id := WorkerIdentity{Project: "p", Zone: "us-central1-a", Instance: "worker-1"}
	assert.True(t, id.Valid())
	assert.Equal(t, "p/us-central1-a/worker-1", id.String())

	assert.False(t, WorkerIdentity{Project: "p", Zone: "z"}.Valid())
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateTerminating.Terminal())
	assert.False(t, StateRunning.Terminal())
}
