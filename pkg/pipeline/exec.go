package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/cleancurrents/annotation-worker/pkg/log"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// configRef matches $(key) references in argv and env values.
var configRef = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// ExecStage runs an external program as one pipeline stage. The process
// exit status is the sole success signal: zero means the stage succeeded.
//
// Argument and environment values may reference task configuration with
// $(key); references to unresolved keys expand to the empty string, the
// same default the resolver hands out for absent optional keys.
type ExecStage struct {
	// StageName identifies the stage
	StageName string

	// Command is the program and its fixed arguments
	Command []string

	// Args are appended to Command after $(key) expansion
	Args []string

	// Env lists extra environment variables (NAME -> value, value may
	// contain $(key) references). The stage inherits the process
	// environment on top of these.
	Env map[string]string

	// Dir is the working directory (empty = inherit)
	Dir string
}

// Name implements Stage.
func (s *ExecStage) Name() string { return s.StageName }

// Run implements Stage by invoking the command and waiting for it.
func (s *ExecStage) Run(ctx context.Context, cfg types.TaskConfig) error {
	if len(s.Command) == 0 {
		return fmt.Errorf("stage %q has no command", s.StageName)
	}

	argv := make([]string, 0, len(s.Command)+len(s.Args))
	for _, a := range s.Command {
		argv = append(argv, Expand(a, cfg))
	}
	for _, a := range s.Args {
		argv = append(argv, Expand(a, cfg))
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.Dir
	cmd.Env = os.Environ()
	for name, value := range s.Env {
		cmd.Env = append(cmd.Env, name+"="+Expand(value, cfg))
	}

	// Stage output goes straight to the worker's own streams so the
	// logging agent captures it alongside lifecycle logs.
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger := log.WithStage(s.StageName)
	logger.Debug().Strs("argv", argv).Str("dir", s.Dir).Msg("invoking stage command")

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("exited with code %d: %w", exitErr.ExitCode(), err)
		}
		return fmt.Errorf("failed to invoke: %w", err)
	}
	return nil
}

// Expand replaces $(key) references with values from the config.
func Expand(s string, cfg types.TaskConfig) string {
	return configRef.ReplaceAllStringFunc(s, func(ref string) string {
		key := configRef.FindStringSubmatch(ref)[1]
		return cfg.Value(key)
	})
}
