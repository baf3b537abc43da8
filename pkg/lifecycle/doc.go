/*
Package lifecycle sequences one ephemeral worker run from boot to exit.

A run moves through a fixed, forward-only progression:

	initializing
	     |
	waiting_readiness     poll the hardware probe, bounded by max-wait
	     |
	resolving_config      read every task parameter from metadata
	     |
	fetching_stages       download remote stage programs, if any
	     |
	running               execute the pipeline stages in order
	     |
	completed / failed

The first failure at any step ends the run. There are no retries and no
recovery: a worker instance is disposable, and the launcher's answer to
a failed run is a fresh instance, not a healed one.

Termination is deliberately outside this package. The termination guard
is armed before Run is called and fires after it returns, whatever
happened in between; the manager only reports the outcome through its
returned error, which ExitCode maps to the process exit code.

Each transition and stage outcome is journaled locally so a failed run
can be reconstructed from the boot disk after the instance is gone.
*/
package lifecycle
