/*
Package terminate guarantees the worker frees its own compute instance
exactly once, whatever happens to the run.

An ephemeral GPU worker that forgets to delete itself bills until someone
notices; that is the single most expensive failure mode this process has.
The Guard is armed in main before any other work and fired on every exit
path:

	main
	 ├── arm Guard                         (before anything else)
	 ├── run lifecycle ── success/failure
	 ├── Guard.Fire()                      (deferred, always)
	 └── os.Exit(code)

	signal (SIGTERM/SIGINT) ──▶ cancel lifecycle ──▶ same Fire path
	panic in lifecycle ───────▶ recovered       ──▶ same Fire path

Firing resolves the worker's identity from the metadata source (cached if
the lifecycle already resolved it), then issues one instances.delete call
through the Deleter. A sync.Once latch makes repeated firing (deferred
exit racing a second signal) a no-op rather than a second delete.

Deletion is strictly best effort. A failed delete is logged and counted,
never propagated: there is no layer above the finalizer to report to, the
process must still exit with its original status, and the platform's
maximum-lifetime limit backstops leaked instances.
*/
package terminate
