/*
Package types defines the shared data model for the annotation worker:
the worker's identity, the immutable task configuration, the lifecycle
state machine, and the record structs persisted to the run journal.

# Lifecycle states

A run moves strictly forward through its states:

	initializing → waiting_readiness → resolving_config → fetching_stages → running → completed
	                                                                              └→ failed

	any state ──────────────────────────────────────────────────────────────────→ terminating

terminating is special: it is reachable from every other state (the
termination guard fires on every exit path) and is entered exactly once
per process lifetime. CanTransition encodes these rules and is enforced
by the lifecycle manager on every transition.

# Task configuration

TaskConfig is constructed once by the resolver and handed by value to
every pipeline stage. Its internal map is never exposed, so a stage
cannot mutate the configuration another stage will see.
*/
package types
