package terminate

import (
	"context"
	"sync"
	"time"

	"github.com/cleancurrents/annotation-worker/pkg/events"
	"github.com/cleancurrents/annotation-worker/pkg/log"
	"github.com/cleancurrents/annotation-worker/pkg/metadata"
	"github.com/cleancurrents/annotation-worker/pkg/metrics"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// Deleter issues the delete-self call against the resource controller.
type Deleter interface {
	// Delete requests deletion of the identified instance. Acceptance of
	// the request is success; the guard never waits for actual teardown.
	Delete(ctx context.Context, id types.WorkerIdentity) error
}

// Guard guarantees the worker deletes its own instance exactly once, no
// matter how the process exits. It is armed before any other work begins
// and fired on every exit path; a one-shot latch makes re-entrant firing
// (deferred exit plus signal handling) issue at most one delete call.
//
// Deletion is best effort: a failed delete is logged and swallowed, never
// re-raised. The process must still exit, and the platform-level maximum
// instance lifetime is the backstop for leaked instances.
type Guard struct {
	source  metadata.Source
	deleter Deleter
	broker  *events.Broker

	// Timeout bounds the whole firing sequence, identity resolution
	// included. The guard runs while the process is trying to die; it
	// must not hang it.
	Timeout time.Duration

	once  sync.Once
	mu    sync.Mutex
	fired bool
}

// NewGuard creates a guard. broker may be nil.
func NewGuard(source metadata.Source, deleter Deleter, broker *events.Broker) *Guard {
	return &Guard{
		source:  source,
		deleter: deleter,
		broker:  broker,
		Timeout: 2 * time.Minute,
	}
}

// Fire resolves the worker's identity and issues the delete-self call.
// Only the first call does anything; later calls return immediately.
// Fire never panics and never returns an error.
func (g *Guard) Fire() {
	g.once.Do(g.fire)
}

// Fired reports whether the guard has already fired.
func (g *Guard) Fired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}

func (g *Guard) fire() {
	g.mu.Lock()
	g.fired = true
	g.mu.Unlock()

	logger := log.WithComponent("terminate")

	// The caller's context may already be canceled (signal, timeout);
	// deletion gets its own bounded context so it still goes out.
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	defer func() {
		// A panic inside the finalizer must not mask the exit reason.
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("termination guard panicked")
		}
	}()

	g.publish(events.EventTerminationInitiated, "")
	metrics.SetLifecycleState(string(types.StateTerminating))

	id, err := g.source.Identity(ctx)
	if err != nil {
		metrics.Terminations.WithLabelValues("identity_error").Inc()
		logger.Error().Err(err).Msg("cannot resolve own identity, instance will not be deleted")
		g.publish(events.EventTerminationFailed, err.Error())
		return
	}

	logger.Info().Str("instance", id.String()).Msg("deleting own instance")

	if err := g.deleter.Delete(ctx, id); err != nil {
		metrics.Terminations.WithLabelValues("error").Inc()
		logger.Error().Err(err).Str("instance", id.String()).Msg("self-deletion request failed")
		g.publish(events.EventTerminationFailed, err.Error())
		return
	}

	metrics.Terminations.WithLabelValues("ok").Inc()
	logger.Info().Str("instance", id.String()).Msg("self-deletion request accepted")
	g.publish(events.EventTerminationDone, id.String())
}

func (g *Guard) publish(typ events.EventType, msg string) {
	if g.broker == nil {
		return
	}
	g.broker.Publish(&events.Event{Type: typ, Message: msg})
}
