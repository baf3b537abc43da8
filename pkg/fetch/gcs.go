package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS fetches stage programs from a Cloud Storage bucket (gs:// sources).
// This is the default delivery path: the provisioning function and the
// worker image agree on a scripts bucket.
type GCS struct {
	client *storage.Client
}

// NewGCS creates a GCS fetcher. On a GCE instance the client picks up the
// instance service account credentials.
func NewGCS(ctx context.Context, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Fetch implements Fetcher for gs://bucket/object sources.
func (g *GCS) Fetch(ctx context.Context, source, dest string) error {
	bucket, object, err := splitGCSSource(source)
	if err != nil {
		return err
	}

	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to open gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	return writeExecutable(dest, r)
}

// Close releases the underlying storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func splitGCSSource(source string) (bucket, object string, err error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse source %q: %w", source, err)
	}
	if u.Scheme != "gs" || u.Host == "" {
		return "", "", fmt.Errorf("not a gs://bucket/object source: %q", source)
	}
	object = strings.TrimPrefix(u.Path, "/")
	if object == "" {
		return "", "", fmt.Errorf("source %q names no object", source)
	}
	return u.Host, object, nil
}
