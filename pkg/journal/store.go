package journal

import (
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// Store defines the interface for the local run journal.
// This is implemented by BoltDB-backed storage.
type Store interface {
	// Runs
	CreateRun(run *types.RunRecord) error
	UpdateRun(run *types.RunRecord) error
	GetRun(id string) (*types.RunRecord, error)
	ListRuns() ([]*types.RunRecord, error)

	// State transitions, ordered by sequence number
	AppendTransition(tr *types.TransitionRecord) error
	ListTransitions(runID string) ([]*types.TransitionRecord, error)

	// Stage outcomes, ordered by stage index
	AppendStage(sr *types.StageRecord) error
	ListStages(runID string) ([]*types.StageRecord, error)

	// Utility
	Close() error
}
