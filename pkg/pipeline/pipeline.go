package pipeline

import (
	"context"
	"fmt"

	"github.com/cleancurrents/annotation-worker/pkg/events"
	"github.com/cleancurrents/annotation-worker/pkg/log"
	"github.com/cleancurrents/annotation-worker/pkg/metrics"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// Stage is one discrete unit of processing work. Stages are opaque to the
// runner: it only sequences them, hands each the shared TaskConfig, and
// observes success or failure.
type Stage interface {
	// Name identifies the stage in logs, events and errors
	Name() string

	// Run executes the stage to completion
	Run(ctx context.Context, cfg types.TaskConfig) error
}

// FuncStage adapts a function to the Stage interface, used in tests and
// for small in-process steps.
type FuncStage struct {
	StageName string
	Fn        func(ctx context.Context, cfg types.TaskConfig) error
}

// Name implements Stage.
func (s *FuncStage) Name() string { return s.StageName }

// Run implements Stage.
func (s *FuncStage) Run(ctx context.Context, cfg types.TaskConfig) error {
	return s.Fn(ctx, cfg)
}

// StageError reports the first stage that failed and why. Stages after it
// were never invoked.
type StageError struct {
	Stage string
	Index int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q (index %d) failed: %v", e.Stage, e.Index, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Runner executes an ordered stage sequence with fail-fast semantics.
type Runner struct {
	// Broker receives stage start/finish events when set.
	Broker *events.Broker
}

// NewRunner creates a runner publishing to the given broker (may be nil).
func NewRunner(broker *events.Broker) *Runner {
	return &Runner{Broker: broker}
}

// Run executes the stages strictly in order. Each stage receives the same
// read-only config. The first failure stops the run: later stages are not
// invoked and the returned error is a *StageError naming the culprit. The
// returned records cover every stage that was started, in order, and are
// complete even when the run fails.
func (r *Runner) Run(ctx context.Context, stages []Stage, cfg types.TaskConfig) ([]types.StageRecord, error) {
	logger := log.WithComponent("pipeline")
	records := make([]types.StageRecord, 0, len(stages))

	for i, stage := range stages {
		stageLog := log.WithStage(stage.Name())
		stageLog.Info().Int("index", i).Int("total", len(stages)).Msg("stage starting")
		r.publish(events.EventStageStarted, stage.Name(), nil)

		timer := metrics.NewTimer()
		err := stage.Run(ctx, cfg)
		duration := timer.Duration()
		metrics.StageDuration.WithLabelValues(stage.Name()).Observe(duration.Seconds())

		record := types.StageRecord{
			Index:      i,
			Name:       stage.Name(),
			StartedAt:  timer.Start(),
			FinishedAt: timer.Start().Add(duration),
			Duration:   duration,
			Succeeded:  err == nil,
		}

		if err != nil {
			record.Error = err.Error()
			records = append(records, record)
			metrics.StagesFailed.Inc()
			stageLog.Error().Err(err).Dur("duration", duration).Msg("stage failed, aborting pipeline")
			r.publish(events.EventStageFailed, stage.Name(), map[string]string{"error": err.Error()})
			return records, &StageError{Stage: stage.Name(), Index: i, Err: err}
		}

		records = append(records, record)
		stageLog.Info().Dur("duration", duration).Msg("stage completed")
		r.publish(events.EventStageCompleted, stage.Name(), nil)
	}

	logger.Info().Int("stages", len(stages)).Msg("pipeline completed")
	return records, nil
}

func (r *Runner) publish(typ events.EventType, msg string, meta map[string]string) {
	if r.Broker == nil {
		return
	}
	r.Broker.Publish(&events.Event{Type: typ, Message: msg, Metadata: meta})
}
