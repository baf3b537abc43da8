/*
Package taskconfig resolves the worker's task parameters from the
metadata source against a declared schema.

The schema lists which metadata keys are required and which are optional
with defaults. Resolution is all-or-nothing: a required key that is absent
or empty fails the run with a MissingKeyError before any pipeline stage
starts, and later stages only ever see a fully populated, immutable
TaskConfig.

Keys marked Secret (credentials the provisioning function writes into
instance metadata) are redacted from debug logs.
*/
package taskconfig
