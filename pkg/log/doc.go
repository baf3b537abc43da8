/*
Package log provides structured logging for the annotation worker using
zerolog.

The package wraps zerolog with a global logger initialized once at process
start, plus helpers that derive child loggers carrying correlation fields.
Every worker logs its own instance name on every line so that runs from
concurrently provisioned workers can be told apart in the shared log sink.

Typical usage:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithInstance("baltimore-auto-annotation-2024-1-1")
	logger.Info().Str("state", "waiting_readiness").Msg("lifecycle transition")

Child logger helpers:

  - WithComponent("readiness") tags a subsystem
  - WithInstance(name) tags the worker identity
  - WithRunID(id) tags one journaled run
  - WithStage(name) tags one pipeline stage

JSON output is the production default; console output exists for running
the binary by hand with --log-console.
*/
package log
