/*
Package pipeline executes the worker's ordered processing stages with
fail-fast semantics.

A stage is an opaque external program (the production pipeline runs GPU
inference and then the annotation upload); the runner only sequences
stages, hands each one the shared read-only TaskConfig, and observes exit
status. The first failure stops the pipeline (later stages never run)
and surfaces as a StageError naming the stage and the underlying cause.
The runner does not retry: retry policy belongs to the stages themselves.

	┌──────────────────── Runner ────────────────────┐
	│                                                │
	│  stage 1 ──ok──▶ stage 2 ──ok──▶ … ──▶ stage N │
	│     │               │                          │
	│   fail            fail                         │
	│     ▼               ▼                          │
	│        StageError{stage, cause}                │
	└────────────────────────────────────────────────┘

Stage sequences are declared in a YAML manifest (see Manifest), which maps
each entry to an ExecStage. Argv and environment entries may reference
task configuration with $(key), e.g. ["--folders", "$(folders)"], so the
manifest stays declarative while per-run parameters come from metadata.
FuncStage exists for tests and in-process steps.
*/
package pipeline
