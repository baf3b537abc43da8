package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cleancurrents/annotation-worker/pkg/log"
)

// Fetcher retrieves one stage program from an external source and writes
// it to a local path.
type Fetcher interface {
	// Fetch downloads source to dest. dest is created executable since
	// fetched programs are invoked directly by the pipeline.
	Fetch(ctx context.Context, source, dest string) error
}

// Mux routes a source URL to the fetcher registered for its scheme.
type Mux struct {
	fetchers map[string]Fetcher
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{fetchers: make(map[string]Fetcher)}
}

// Register installs a fetcher for a URL scheme (e.g. "gs", "https").
func (m *Mux) Register(scheme string, f Fetcher) {
	m.fetchers[scheme] = f
}

// Fetch implements Fetcher by dispatching on the source's scheme.
func (m *Mux) Fetch(ctx context.Context, source, dest string) error {
	u, err := url.Parse(source)
	if err != nil {
		return fmt.Errorf("failed to parse source %q: %w", source, err)
	}
	f, ok := m.fetchers[u.Scheme]
	if !ok {
		return fmt.Errorf("no fetcher for scheme %q (source %q)", u.Scheme, source)
	}

	logger := log.WithComponent("fetch")
	logger.Info().Str("source", source).Str("dest", dest).Msg("fetching stage program")
	return f.Fetch(ctx, source, dest)
}

// writeExecutable copies r to path with exec permissions, creating parent
// directories as needed. The write goes through a temp file and rename so
// a partially fetched program never sits at the final path.
func writeExecutable(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
