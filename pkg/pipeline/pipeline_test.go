package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleancurrents/annotation-worker/pkg/types"
)

func passStage(name string, ran *[]string) Stage {
	return &FuncStage{StageName: name, Fn: func(ctx context.Context, cfg types.TaskConfig) error {
		*ran = append(*ran, name)
		return nil
	}}
}

func failStage(name string, ran *[]string, err error) Stage {
	return &FuncStage{StageName: name, Fn: func(ctx context.Context, cfg types.TaskConfig) error {
		*ran = append(*ran, name)
		return err
	}}
}

func TestRunnerAllSucceed(t *testing.T) {
	var ran []string
	stages := []Stage{passStage("inference", &ran), passStage("upload", &ran)}

	records, err := NewRunner(nil).Run(context.Background(), stages, types.TaskConfig{})
	require.NoError(t, err)

	assert.Equal(t, []string{"inference", "upload"}, ran)
	require.Len(t, records, 2)
	assert.True(t, records[0].Succeeded)
	assert.True(t, records[1].Succeeded)
}

// The first failure stops the pipeline: stages after it never run.
func TestRunnerFailFast(t *testing.T) {
	var ran []string
	cause := errors.New("CUDA out of memory")
	stages := []Stage{
		passStage("fetch", &ran),
		failStage("inference", &ran, cause),
		passStage("upload", &ran),
	}

	records, err := NewRunner(nil).Run(context.Background(), stages, types.TaskConfig{})
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "inference", stageErr.Stage)
	assert.Equal(t, 1, stageErr.Index)
	assert.True(t, errors.Is(err, cause))

	assert.Equal(t, []string{"fetch", "inference"}, ran, "upload must not run")
	require.Len(t, records, 2)
	assert.True(t, records[0].Succeeded)
	assert.False(t, records[1].Succeeded)
	assert.Contains(t, records[1].Error, "CUDA")
}

// Every stage sees the same configuration values.
func TestRunnerSharedConfig(t *testing.T) {
	cfg := types.NewTaskConfig(map[string]string{"folders": `["1/2024-1-1/"]`})

	var seen []string
	stage := func(name string) Stage {
		return &FuncStage{StageName: name, Fn: func(ctx context.Context, c types.TaskConfig) error {
			seen = append(seen, c.Value("folders"))
			return nil
		}}
	}

	_, err := NewRunner(nil).Run(context.Background(), []Stage{stage("a"), stage("b")}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{`["1/2024-1-1/"]`, `["1/2024-1-1/"]`}, seen)
}

func TestRunnerFirstStageFails(t *testing.T) {
	var ran []string
	stages := []Stage{
		failStage("fetch", &ran, errors.New("boom")),
		passStage("inference", &ran),
	}

	_, err := NewRunner(nil).Run(context.Background(), stages, types.TaskConfig{})

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, 0, stageErr.Index)
	assert.Equal(t, []string{"fetch"}, ran)
}

func TestExpand(t *testing.T) {
	cfg := types.NewTaskConfig(map[string]string{
		"folders":       `["1/2024-1-1/"]`,
		"cvat_username": "reviewer",
	})

	tests := []struct {
		in   string
		want string
	}{
		{"$(folders)", `["1/2024-1-1/"]`},
		{"--folders=$(folders)", `--folders=["1/2024-1-1/"]`},
		{"$(cvat_username):$(cvat_password)", "reviewer:"},
		{"no refs", "no refs"},
		{"$(missing)", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Expand(tt.in, cfg), "input %q", tt.in)
	}
}

func TestExecStageSuccess(t *testing.T) {
	stage := &ExecStage{StageName: "noop", Command: []string{"true"}}
	err := stage.Run(context.Background(), types.TaskConfig{})
	assert.NoError(t, err)
}

func TestExecStageExitCode(t *testing.T) {
	stage := &ExecStage{StageName: "broken", Command: []string{"sh", "-c", "exit 3"}}
	err := stage.Run(context.Background(), types.TaskConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 3")
}

func TestExecStageMissingBinary(t *testing.T) {
	stage := &ExecStage{StageName: "ghost", Command: []string{"no-such-binary-xyz"}}
	err := stage.Run(context.Background(), types.TaskConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to invoke")
}

func TestExecStageNoCommand(t *testing.T) {
	stage := &ExecStage{StageName: "empty"}
	err := stage.Run(context.Background(), types.TaskConfig{})
	require.Error(t, err)
}

func TestExecStageExpandsArgs(t *testing.T) {
	cfg := types.NewTaskConfig(map[string]string{"folders": "1/2024-1-1/"})

	// The shell sees the expanded value; grep for it in the env dump.
	stage := &ExecStage{
		StageName: "env-check",
		Command:   []string{"sh", "-c", `[ "$FOLDERS" = "1/2024-1-1/" ]`},
		Env:       map[string]string{"FOLDERS": "$(folders)"},
	}
	err := stage.Run(context.Background(), cfg)
	assert.NoError(t, err)
}
