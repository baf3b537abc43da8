package terminate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleancurrents/annotation-worker/pkg/metadata"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

type fakeDeleter struct {
	calls   int32
	lastID  types.WorkerIdentity
	failErr error
}

func (d *fakeDeleter) Delete(_ context.Context, id types.WorkerIdentity) error {
	atomic.AddInt32(&d.calls, 1)
	d.lastID = id
	return d.failErr
}

func (d *fakeDeleter) count() int {
	return int(atomic.LoadInt32(&d.calls))
}

func testIdentity() types.WorkerIdentity {
	return types.WorkerIdentity{Project: "cleancurrents", Zone: "us-central1-a", Instance: "annotation-2024-1-1"}
}

func TestGuardFiresOnce(t *testing.T) {
	deleter := &fakeDeleter{}
	guard := NewGuard(&metadata.Static{ID: testIdentity()}, deleter, nil)

	guard.Fire()
	guard.Fire()

	assert.Equal(t, 1, deleter.count(), "second Fire must not issue a second delete")
	assert.True(t, guard.Fired())
	assert.Equal(t, testIdentity(), deleter.lastID)
}

// Re-entrant firing from concurrent exit paths (deferred exit racing a
// signal handler) must still issue at most one delete.
func TestGuardConcurrentFire(t *testing.T) {
	deleter := &fakeDeleter{}
	guard := NewGuard(&metadata.Static{ID: testIdentity()}, deleter, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guard.Fire()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, deleter.count())
}

// A failed delete is logged and swallowed, never raised or retried.
func TestGuardDeleteFailure(t *testing.T) {
	deleter := &fakeDeleter{failErr: errors.New("quota exceeded")}
	guard := NewGuard(&metadata.Static{ID: testIdentity()}, deleter, nil)

	assert.NotPanics(t, func() { guard.Fire() })
	assert.Equal(t, 1, deleter.count(), "no retry on failure")
	assert.True(t, guard.Fired())
}

type brokenSource struct{}

func (brokenSource) Get(context.Context, string) (string, error) {
	return "", errors.New("metadata unreachable")
}

func (brokenSource) Identity(context.Context) (types.WorkerIdentity, error) {
	return types.WorkerIdentity{}, errors.New("metadata unreachable")
}

func TestGuardIdentityFailure(t *testing.T) {
	deleter := &fakeDeleter{}
	guard := NewGuard(brokenSource{}, deleter, nil)

	assert.NotPanics(t, func() { guard.Fire() })
	assert.Equal(t, 0, deleter.count(), "no delete without an identity")
	assert.True(t, guard.Fired(), "guard is spent even when deletion could not be issued")
}

type panickingDeleter struct{}

func (panickingDeleter) Delete(context.Context, types.WorkerIdentity) error {
	panic("client bug")
}

// The finalizer must not let a panic mask the process's exit reason.
func TestGuardSwallowsPanic(t *testing.T) {
	guard := NewGuard(&metadata.Static{ID: testIdentity()}, panickingDeleter{}, nil)

	require.NotPanics(t, func() { guard.Fire() })
	assert.True(t, guard.Fired())
}
