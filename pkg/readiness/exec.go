package readiness

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// ExecProbe reports ready when a command exits zero. The production probe
// runs the GPU driver utility (e.g. ["nvidia-smi"]): on a freshly booted
// instance the driver install races with the rest of boot, so the command
// fails until the device is actually usable.
type ExecProbe struct {
	// Command is the probe command and its arguments
	Command []string

	// Timeout is the per-attempt execution timeout (default: 10 seconds)
	Timeout time.Duration
}

// NewExecProbe creates an exec-based readiness probe
func NewExecProbe(command []string) *ExecProbe {
	return &ExecProbe{
		Command: command,
		Timeout: 10 * time.Second,
	}
}

// Check implements Probe by running the command once.
func (e *ExecProbe) Check(ctx context.Context) Result {
	start := time.Now()

	if len(e.Command) == 0 {
		return Result{
			Ready:     false,
			Message:   "no command specified",
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.Command[0], e.Command[1:]...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	message := fmt.Sprintf("command: %v", e.Command)
	if err != nil {
		message = fmt.Sprintf("%s, error: %v", message, err)
		if stderr.Len() > 0 {
			message = fmt.Sprintf("%s, stderr: %s", message, stderr.String())
		}
		return Result{
			Ready:     false,
			Message:   message,
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return Result{
		Ready:     true,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// WithTimeout sets the per-attempt execution timeout
func (e *ExecProbe) WithTimeout(timeout time.Duration) *ExecProbe {
	e.Timeout = timeout
	return e
}
