package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleancurrents/annotation-worker/pkg/log"
)

// ErrTimeout is returned by Gate.Wait when the probe never reported ready
// within the configured bound.
var ErrTimeout = errors.New("readiness wait timed out")

// Result represents the outcome of one probe attempt
type Result struct {
	Ready     bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Probe is a boolean readiness check. Implementations must be safe to
// call repeatedly; the gate never calls a probe concurrently.
type Probe interface {
	// Check performs one probe attempt and returns the result
	Check(ctx context.Context) Result
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) Result

// Check implements Probe.
func (f ProbeFunc) Check(ctx context.Context) Result {
	return f(ctx)
}

// Gate blocks the lifecycle until a hardware dependency is ready.
type Gate struct {
	// Probe is the readiness signal, e.g. "is the GPU driver present".
	Probe Probe

	// MaxWait bounds the total time spent waiting.
	MaxWait time.Duration

	// Interval is the fixed delay between probe attempts. The gate never
	// polls tighter than this.
	Interval time.Duration
}

// NewGate creates a gate with the given probe and bounds.
func NewGate(probe Probe, maxWait, interval time.Duration) *Gate {
	return &Gate{Probe: probe, MaxWait: maxWait, Interval: interval}
}

// Wait polls the probe at the gate's interval until it reports ready or
// until elapsed time reaches MaxWait, whichever comes first. On expiry it
// returns ErrTimeout; the caller must treat that as fatal. Each
// unsuccessful attempt is logged for operational visibility.
func (g *Gate) Wait(ctx context.Context) error {
	logger := log.WithComponent("readiness")
	deadline := time.Now().Add(g.MaxWait)

	attempt := 0
	for {
		attempt++
		result := g.Probe.Check(ctx)
		if result.Ready {
			logger.Info().
				Int("attempts", attempt).
				Dur("probe_duration", result.Duration).
				Msg("readiness signal is up")
			return nil
		}

		remaining := time.Until(deadline)
		logger.Warn().
			Int("attempt", attempt).
			Str("probe", result.Message).
			Dur("remaining", remaining).
			Msg("readiness signal not up yet")

		if remaining < g.Interval {
			return fmt.Errorf("%w after %v (%d attempts)", ErrTimeout, g.MaxWait, attempt)
		}

		select {
		case <-time.After(g.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
