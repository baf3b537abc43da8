package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest declares the pipeline for one worker image. It is baked into
// the image (or fetched at boot) so that the stage list is data, not code:
// whether the upload stage runs is decided here.
type Manifest struct {
	// Workdir is where fetched stage programs are placed and stages run.
	// Empty means the process working directory.
	Workdir string `yaml:"workdir,omitempty"`

	// Stages is the ordered stage list. Order is significant.
	Stages []StageSpec `yaml:"stages"`
}

// StageSpec declares one stage of the pipeline.
type StageSpec struct {
	// Name identifies the stage; must be unique within the manifest.
	Name string `yaml:"name"`

	// Source optionally names where to fetch the stage program from
	// before the pipeline runs: a gs://bucket/object or https:// URL.
	Source string `yaml:"source,omitempty"`

	// Command is the program and its fixed arguments.
	Command []string `yaml:"command"`

	// Args are appended to Command; $(key) references are expanded from
	// the task configuration.
	Args []string `yaml:"args,omitempty"`

	// Env lists extra environment variables for the stage.
	Env map[string]string `yaml:"env,omitempty"`
}

// LoadManifest reads and validates a pipeline manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for structural errors.
func (m *Manifest) Validate() error {
	if len(m.Stages) == 0 {
		return fmt.Errorf("manifest declares no stages")
	}
	seen := make(map[string]bool, len(m.Stages))
	for i, spec := range m.Stages {
		if spec.Name == "" {
			return fmt.Errorf("stage %d has no name", i)
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate stage name %q", spec.Name)
		}
		seen[spec.Name] = true
		if len(spec.Command) == 0 {
			return fmt.Errorf("stage %q has no command", spec.Name)
		}
	}
	return nil
}

// BuildStages converts the manifest into the runner's stage sequence.
func (m *Manifest) BuildStages() []Stage {
	stages := make([]Stage, 0, len(m.Stages))
	for _, spec := range m.Stages {
		stages = append(stages, &ExecStage{
			StageName: spec.Name,
			Command:   spec.Command,
			Args:      spec.Args,
			Env:       spec.Env,
			Dir:       m.Workdir,
		})
	}
	return stages
}
