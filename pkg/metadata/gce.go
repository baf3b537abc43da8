package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gcemd "cloud.google.com/go/compute/metadata"
	"github.com/cenkalti/backoff"

	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// GCE reads instance attributes and identity from the GCE metadata server.
// Transient metadata-server errors are retried with exponential backoff;
// an absent key is reported immediately as ErrNotDefined.
type GCE struct {
	client *gcemd.Client

	// MaxElapsed bounds the total retry time per lookup.
	MaxElapsed time.Duration

	mu       sync.Mutex
	identity types.WorkerIdentity
	resolved bool
}

// NewGCE creates a metadata source backed by the GCE metadata server.
func NewGCE() *GCE {
	return &GCE{
		client:     gcemd.NewClient(nil),
		MaxElapsed: 30 * time.Second,
	}
}

// Get returns the named instance attribute.
func (g *GCE) Get(ctx context.Context, key string) (string, error) {
	var value string
	op := func() error {
		v, err := g.client.InstanceAttributeValueWithContext(ctx, key)
		if err != nil {
			var nde gcemd.NotDefinedError
			if errors.As(err, &nde) {
				// Absence is an answer, not a fault: do not retry.
				return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotDefined, key))
			}
			return err
		}
		value = v
		return nil
	}

	if err := backoff.Retry(op, g.newBackOff(ctx)); err != nil {
		return "", err
	}
	return value, nil
}

// Identity resolves and caches the worker's identity.
func (g *GCE) Identity(ctx context.Context) (types.WorkerIdentity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolved {
		return g.identity, nil
	}

	var id types.WorkerIdentity
	op := func() error {
		project, err := g.client.ProjectIDWithContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve project: %w", err)
		}
		zone, err := g.client.ZoneWithContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve zone: %w", err)
		}
		instance, err := g.client.InstanceNameWithContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve instance name: %w", err)
		}
		id = types.WorkerIdentity{Project: project, Zone: zone, Instance: instance}
		return nil
	}

	if err := backoff.Retry(op, g.newBackOff(ctx)); err != nil {
		return types.WorkerIdentity{}, err
	}

	g.identity = id
	g.resolved = true
	return id, nil
}

func (g *GCE) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = g.MaxElapsed
	return backoff.WithContext(b, ctx)
}
