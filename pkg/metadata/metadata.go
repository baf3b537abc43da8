package metadata

import (
	"context"
	"errors"

	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// ErrNotDefined is returned by Source.Get when the queried key has no
// value on the metadata server. Required/optional policy lives in the
// resolver; this package only distinguishes absent from present.
var ErrNotDefined = errors.New("metadata key not defined")

// IsNotDefined reports whether err means the key was absent rather than
// the lookup itself failing.
func IsNotDefined(err error) bool {
	return errors.Is(err, ErrNotDefined)
}

// Source supplies the worker its task parameters and its own identity.
type Source interface {
	// Get returns the value of a single instance attribute. Absent keys
	// yield an error satisfying IsNotDefined.
	Get(ctx context.Context, key string) (string, error)

	// Identity resolves the worker's {project, zone, instance} triple.
	// Implementations cache the result; identity never changes while the
	// process runs.
	Identity(ctx context.Context) (types.WorkerIdentity, error)
}

// Static is a map-backed Source for tests and local runs.
type Static struct {
	ID     types.WorkerIdentity
	Values map[string]string
}

// Get implements Source.
func (s *Static) Get(_ context.Context, key string) (string, error) {
	v, ok := s.Values[key]
	if !ok {
		return "", ErrNotDefined
	}
	return v, nil
}

// Identity implements Source.
func (s *Static) Identity(_ context.Context) (types.WorkerIdentity, error) {
	return s.ID, nil
}
