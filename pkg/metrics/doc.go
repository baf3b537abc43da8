/*
Package metrics defines the worker's Prometheus collectors.

Operators observe a fleet of ephemeral workers primarily through logs, but
the metrics endpoint (served by pkg/api when --debug-addr is set) makes a
stuck worker inspectable while it is still alive: how long the readiness
wait has gone on, which lifecycle state is active, and per-stage
durations. Counters for readiness timeouts, failed stages and
self-deletion outcomes feed the scrape that happens right before the
instance disappears.
*/
package metrics
