/*
Package api provides an optional debug HTTP server for a running worker.

Endpoints:

	GET /healthz   liveness probe with uptime
	GET /state     current lifecycle state and run ID
	GET /metrics   Prometheus metrics

The server is for interactive debugging of a live instance (SSH tunnel
or VPC-internal scrape). Nothing in the lifecycle depends on it and it
is disabled by default.
*/
package api
