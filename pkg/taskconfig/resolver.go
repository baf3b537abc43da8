package taskconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleancurrents/annotation-worker/pkg/log"
	"github.com/cleancurrents/annotation-worker/pkg/metadata"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// Key declares one parameter the lifecycle reads from the metadata source.
type Key struct {
	// Name is the metadata attribute name.
	Name string

	// Default is used for optional keys that are absent. Required keys
	// ignore it.
	Default string

	// Secret suppresses the value in logs.
	Secret bool
}

// Schema declares the full set of task parameters. The schema, not the
// call sites, is the single source of truth for what configuration the
// lifecycle needs.
type Schema struct {
	Required []Key
	Optional []Key
}

// MissingKeyError reports a required key that was absent or empty.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required metadata key %q is absent or empty", e.Key)
}

// Resolve queries the source for every key in the schema and returns the
// immutable TaskConfig. It either fully succeeds or fails before any
// pipeline stage runs: the first missing required key aborts resolution.
//
// A required key that is present but empty counts as absent. An optional
// key that is absent resolves to its declared default.
func Resolve(ctx context.Context, schema Schema, src metadata.Source) (types.TaskConfig, error) {
	logger := log.WithComponent("taskconfig")
	values := make(map[string]string, len(schema.Required)+len(schema.Optional))

	for _, key := range schema.Required {
		v, err := src.Get(ctx, key.Name)
		if err != nil {
			if metadata.IsNotDefined(err) {
				return types.TaskConfig{}, &MissingKeyError{Key: key.Name}
			}
			return types.TaskConfig{}, fmt.Errorf("failed to read metadata key %q: %w", key.Name, err)
		}
		if strings.TrimSpace(v) == "" {
			return types.TaskConfig{}, &MissingKeyError{Key: key.Name}
		}
		values[key.Name] = v
		logger.Debug().Str("key", key.Name).Str("value", displayValue(key, v)).Msg("resolved required key")
	}

	for _, key := range schema.Optional {
		v, err := src.Get(ctx, key.Name)
		switch {
		case err == nil:
			values[key.Name] = v
		case metadata.IsNotDefined(err):
			values[key.Name] = key.Default
			logger.Debug().Str("key", key.Name).Msg("optional key absent, using default")
		default:
			return types.TaskConfig{}, fmt.Errorf("failed to read metadata key %q: %w", key.Name, err)
		}
	}

	cfg := types.NewTaskConfig(values)
	logger.Info().Int("keys", cfg.Len()).Msg("task configuration resolved")
	return cfg, nil
}

func displayValue(key Key, v string) string {
	if key.Secret {
		return "<redacted>"
	}
	return v
}
