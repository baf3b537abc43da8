package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTP fetches stage programs from an https:// URL, e.g. raw content
// served by the source-control host. Kept alongside the bucket path
// because both delivery variants exist in the field.
type HTTP struct {
	Client *http.Client
}

// NewHTTP creates an HTTP fetcher with a bounded request timeout.
func NewHTTP() *HTTP {
	return &HTTP{Client: &http.Client{Timeout: 2 * time.Minute}}
}

// Fetch implements Fetcher for http:// and https:// sources.
func (h *HTTP) Fetch(ctx context.Context, source, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %q: %w", source, err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %q: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %q: status %d", source, resp.StatusCode)
	}

	return writeExecutable(dest, resp.Body)
}
