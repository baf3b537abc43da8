package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleancurrents/annotation-worker/pkg/events"
	"github.com/cleancurrents/annotation-worker/pkg/fetch"
	"github.com/cleancurrents/annotation-worker/pkg/journal"
	"github.com/cleancurrents/annotation-worker/pkg/log"
	"github.com/cleancurrents/annotation-worker/pkg/metadata"
	"github.com/cleancurrents/annotation-worker/pkg/metrics"
	"github.com/cleancurrents/annotation-worker/pkg/pipeline"
	"github.com/cleancurrents/annotation-worker/pkg/readiness"
	"github.com/cleancurrents/annotation-worker/pkg/taskconfig"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// Process exit codes. The launcher reads these to tell apart "task is
// wrong" from "hardware never came up" without parsing logs.
const (
	ExitOK               = 0
	ExitOtherError       = 1
	ExitMissingConfig    = 2
	ExitReadinessTimeout = 3
	ExitStageFailure     = 4
)

// ExitCode maps a Run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var missing *taskconfig.MissingKeyError
	if errors.As(err, &missing) {
		return ExitMissingConfig
	}
	if errors.Is(err, readiness.ErrTimeout) {
		return ExitReadinessTimeout
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		return ExitStageFailure
	}
	return ExitOtherError
}

// Config wires the manager's collaborators. Source, Gate and Manifest
// are required; Fetcher is required only when the manifest names remote
// stage sources; Journal and Broker are optional.
type Config struct {
	Source   metadata.Source
	Gate     *readiness.Gate
	Schema   taskconfig.Schema
	Manifest *pipeline.Manifest
	Fetcher  fetch.Fetcher
	Journal  journal.Store
	Broker   *events.Broker
}

// Manager drives one worker run through its lifecycle: wait for the
// hardware readiness signal, resolve the task configuration, fetch any
// remote stage programs, then execute the pipeline in order. The first
// failure at any step ends the run; there are no retries at this level.
//
// The manager does not terminate the instance. The termination guard
// owns that, and fires regardless of what Run returns.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	runID string
	state types.LifecycleState
	seq   int
}

// New creates a manager in the initializing state.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:   cfg,
		runID: uuid.NewString(),
		state: types.StateInitializing,
	}
}

// State returns the current lifecycle state and run ID. Safe to call
// from other goroutines (the debug server does).
func (m *Manager) State() (types.LifecycleState, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.runID
}

// Run executes the full lifecycle once and returns the run's outcome.
// The returned error maps to an exit code via ExitCode.
func (m *Manager) Run(ctx context.Context) error {
	logger := log.WithRunID(m.runID)
	logger.Info().Msg("worker run starting")
	metrics.SetLifecycleState(string(types.StateInitializing))

	record := m.openRun(ctx)

	err := m.run(ctx, logger)
	if err != nil {
		// Every failed run ends with exactly one run.failed event, no
		// matter which step gave up.
		m.publish(events.EventRunFailed, err.Error())
		logger.Error().Err(err).Msg("worker run failed")
	}

	m.closeRun(record, err)
	return err
}

func (m *Manager) run(ctx context.Context, logger zerolog.Logger) error {
	// Readiness first: nothing else is worth doing until the GPU driver
	// (or whatever the probe watches) is actually usable.
	if err := m.transition(types.StateWaitingReadiness); err != nil {
		return err
	}
	m.publish(events.EventReadinessWaiting, "")

	waitTimer := metrics.NewTimer()
	if err := m.cfg.Gate.Wait(ctx); err != nil {
		if errors.Is(err, readiness.ErrTimeout) {
			metrics.ReadinessTimeouts.Inc()
			m.publish(events.EventReadinessTimeout, err.Error())
		}
		m.fail()
		return err
	}
	metrics.ReadinessWaitSeconds.Observe(waitTimer.Duration().Seconds())
	m.publish(events.EventReadinessReady, "")

	// Configuration resolves completely before any stage runs, so a
	// mislaunched worker fails here instead of half way through its task.
	if err := m.transition(types.StateResolvingConfig); err != nil {
		return err
	}

	resolveTimer := metrics.NewTimer()
	cfg, err := taskconfig.Resolve(ctx, m.cfg.Schema, m.cfg.Source)
	if err != nil {
		var missing *taskconfig.MissingKeyError
		if errors.As(err, &missing) {
			m.publish(events.EventConfigMissing, missing.Key)
		}
		m.fail()
		return err
	}
	metrics.ConfigResolveSeconds.Observe(resolveTimer.Duration().Seconds())
	m.publish(events.EventConfigResolved, "")

	if err := m.transition(types.StateFetchingStages); err != nil {
		return err
	}
	if err := m.fetchStages(ctx, logger); err != nil {
		m.fail()
		return err
	}

	if err := m.transition(types.StateRunning); err != nil {
		return err
	}

	runner := pipeline.NewRunner(m.cfg.Broker)
	records, err := runner.Run(ctx, m.cfg.Manifest.BuildStages(), cfg)
	m.journalStages(records)
	if err != nil {
		m.fail()
		return err
	}

	if err := m.transition(types.StateCompleted); err != nil {
		return err
	}
	m.publish(events.EventRunCompleted, "")
	logger.Info().Int("stages", len(records)).Msg("worker run completed")
	return nil
}

// fetchStages downloads every stage program the manifest sources from
// outside the image. Programs land in the manifest workdir under their
// source basename, so a stage command can reference them by file name.
func (m *Manager) fetchStages(ctx context.Context, logger zerolog.Logger) error {
	fetched := 0
	for _, spec := range m.cfg.Manifest.Stages {
		if spec.Source == "" {
			continue
		}
		if m.cfg.Fetcher == nil {
			return fmt.Errorf("stage %q names source %q but no fetcher is configured", spec.Name, spec.Source)
		}
		dest, err := stageDest(m.cfg.Manifest.Workdir, spec.Source)
		if err != nil {
			return fmt.Errorf("stage %q: %w", spec.Name, err)
		}
		if err := m.cfg.Fetcher.Fetch(ctx, spec.Source, dest); err != nil {
			return fmt.Errorf("failed to fetch stage %q: %w", spec.Name, err)
		}
		fetched++
	}

	if fetched > 0 {
		logger.Info().Int("fetched", fetched).Msg("stage programs fetched")
	}
	m.publish(events.EventStagesFetched, fmt.Sprintf("%d", fetched))
	return nil
}

// stageDest derives the local path for a fetched stage program.
func stageDest(workdir, source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("failed to parse source %q: %w", source, err)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("source %q has no file name", source)
	}
	return filepath.Join(workdir, base), nil
}

// transition moves the lifecycle to the next state. Illegal transitions
// are refused; they indicate a sequencing bug, not an operational error.
func (m *Manager) transition(to types.LifecycleState) error {
	m.mu.Lock()
	from := m.state
	if !types.CanTransition(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("illegal lifecycle transition %s -> %s", from, to)
	}
	m.state = to
	seq := m.seq
	m.seq++
	m.mu.Unlock()

	logger := log.WithComponent("lifecycle")
	logger.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("state transition")
	metrics.SetLifecycleState(string(to))

	if m.cfg.Journal != nil {
		err := m.cfg.Journal.AppendTransition(&types.TransitionRecord{
			RunID: m.runID,
			Seq:   seq,
			From:  from,
			To:    to,
			At:    time.Now().UTC(),
		})
		if err != nil {
			logger := log.WithComponent("lifecycle")
			logger.Warn().Err(err).Msg("failed to journal transition")
		}
	}
	return nil
}

// fail moves the lifecycle to the failed state. The run's original
// error is what Run returns; a transition refusal here never masks it.
func (m *Manager) fail() {
	if err := m.transition(types.StateFailed); err != nil {
		logger := log.WithComponent("lifecycle")
		logger.Warn().Err(err).Msg("could not enter failed state")
	}
}

func (m *Manager) openRun(ctx context.Context) *types.RunRecord {
	record := &types.RunRecord{
		ID:        m.runID,
		StartedAt: time.Now().UTC(),
		State:     types.StateInitializing,
	}

	// Identity on the record is informational; the guard resolves its own.
	if id, err := m.cfg.Source.Identity(ctx); err == nil {
		record.Identity = id
	} else {
		logger := log.WithComponent("lifecycle")
		logger.Warn().Err(err).Msg("could not resolve identity for journal")
	}

	if m.cfg.Journal != nil {
		if err := m.cfg.Journal.CreateRun(record); err != nil {
			logger := log.WithComponent("lifecycle")
			logger.Warn().Err(err).Msg("failed to journal run start")
		}
	}
	return record
}

func (m *Manager) closeRun(record *types.RunRecord, runErr error) {
	state, _ := m.State()
	record.State = state
	record.FinishedAt = time.Now().UTC()
	record.ExitCode = ExitCode(runErr)
	if runErr != nil {
		record.Error = runErr.Error()
	}

	if m.cfg.Journal != nil {
		if err := m.cfg.Journal.UpdateRun(record); err != nil {
			logger := log.WithComponent("lifecycle")
			logger.Warn().Err(err).Msg("failed to journal run end")
		}
	}
}

func (m *Manager) journalStages(records []types.StageRecord) {
	if m.cfg.Journal == nil {
		return
	}
	for i := range records {
		records[i].RunID = m.runID
		if err := m.cfg.Journal.AppendStage(&records[i]); err != nil {
			logger := log.WithComponent("lifecycle")
			logger.Warn().Err(err).Msg("failed to journal stage outcome")
		}
	}
}

func (m *Manager) publish(typ events.EventType, msg string) {
	if m.cfg.Broker == nil {
		return
	}
	m.cfg.Broker.Publish(&events.Event{Type: typ, Message: msg})
}
