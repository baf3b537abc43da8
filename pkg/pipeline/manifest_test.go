package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
workdir: /opt/annotation-worker
stages:
  - name: inference
    source: gs://trashwheel-scripts/inference.py
    command: ["python3", "inference.py"]
    args: ["$(folders)"]
  - name: upload
    source: gs://trashwheel-scripts/upload_to_cvat.py
    command: ["python3", "upload_to_cvat.py"]
    args: ["$(folders)"]
    env:
      CVAT_USERNAME: "$(cvat_username)"
      CVAT_PASSWORD: "$(cvat_password)"
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, "/opt/annotation-worker", m.Workdir)
	require.Len(t, m.Stages, 2)
	assert.Equal(t, "inference", m.Stages[0].Name)
	assert.Equal(t, "gs://trashwheel-scripts/upload_to_cvat.py", m.Stages[1].Source)
	assert.Equal(t, "$(cvat_username)", m.Stages[1].Env["CVAT_USERNAME"])
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Stages, 2)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no stages",
			yaml:    `workdir: /tmp`,
			wantErr: "no stages",
		},
		{
			name: "missing name",
			yaml: `
stages:
  - command: ["true"]
`,
			wantErr: "has no name",
		},
		{
			name: "duplicate name",
			yaml: `
stages:
  - name: a
    command: ["true"]
  - name: a
    command: ["true"]
`,
			wantErr: "duplicate stage name",
		},
		{
			name: "missing command",
			yaml: `
stages:
  - name: a
`,
			wantErr: "has no command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildStages(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	stages := m.BuildStages()
	require.Len(t, stages, 2)
	assert.Equal(t, "inference", stages[0].Name())

	exec, ok := stages[1].(*ExecStage)
	require.True(t, ok)
	assert.Equal(t, "/opt/annotation-worker", exec.Dir)
	assert.Equal(t, []string{"python3", "upload_to_cvat.py"}, exec.Command)
}
