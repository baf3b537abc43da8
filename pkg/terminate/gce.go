package terminate

import (
	"context"
	"fmt"

	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// GCEDeleter deletes the instance through the Compute Engine API. The
// client authenticates with the instance service account's short-lived
// token, so the worker needs no baked-in credentials.
type GCEDeleter struct {
	service *compute.Service
}

// NewGCEDeleter creates a deleter backed by the Compute Engine API.
func NewGCEDeleter(ctx context.Context, opts ...option.ClientOption) (*GCEDeleter, error) {
	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}
	return &GCEDeleter{service: service}, nil
}

// Delete implements Deleter. The returned operation is not awaited:
// acceptance of the delete request is all the guard needs.
func (d *GCEDeleter) Delete(ctx context.Context, id types.WorkerIdentity) error {
	op, err := d.service.Instances.Delete(id.Project, id.Zone, id.Instance).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", id, err)
	}
	if op.Error != nil && len(op.Error.Errors) > 0 {
		return fmt.Errorf("failed to delete instance %s: %s", id, op.Error.Errors[0].Message)
	}
	return nil
}
