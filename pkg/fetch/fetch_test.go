package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\necho inference\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "bin", "inference.sh")
	err := NewHTTP().Fetch(context.Background(), srv.URL+"/inference.sh", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo inference")

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "fetched program must be executable")
}

func TestHTTPFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing.sh")
	err := NewHTTP().Fetch(context.Background(), srv.URL+"/missing.sh", dest)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file should be left behind")
}

func TestMuxDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	mux := NewMux()
	mux.Register("http", NewHTTP())

	dest := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, mux.Fetch(context.Background(), srv.URL+"/prog", dest))

	err := mux.Fetch(context.Background(), "gs://bucket/prog", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no fetcher for scheme "gs"`)
}

func TestSplitGCSSource(t *testing.T) {
	tests := []struct {
		source  string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://trashwheel-scripts/inference.py", "trashwheel-scripts", "inference.py", false},
		{"gs://b/nested/path/prog.py", "b", "nested/path/prog.py", false},
		{"gs://bucket-only", "", "", true},
		{"https://example.com/x", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		bucket, object, err := splitGCSSource(tt.source)
		if tt.wantErr {
			assert.Error(t, err, "source %q", tt.source)
			continue
		}
		require.NoError(t, err, "source %q", tt.source)
		assert.Equal(t, tt.bucket, bucket)
		assert.Equal(t, tt.object, object)
	}
}

func TestWriteExecutableOverwrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, writeExecutable(dest, strings.NewReader("v1")))
	require.NoError(t, writeExecutable(dest, strings.NewReader("v2")))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}
