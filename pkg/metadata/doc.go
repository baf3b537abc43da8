/*
Package metadata consolidates every metadata-server lookup behind one
Source interface.

The worker learns two things from its metadata source: who it is (the
project, zone and instance name the termination guard needs to delete the
right instance) and what to work on (the task parameters written into
instance attributes by the function that created the VM).

Two implementations exist:

  - GCE: the production source, backed by the GCE metadata server via
    cloud.google.com/go/compute/metadata. Transient server errors are
    retried with exponential backoff; "key not defined" answers are
    returned immediately as ErrNotDefined so the resolver can apply its
    required/optional policy.
  - Static: a map-backed source for tests and --local runs.

The identity triple is resolved once and cached; it cannot change while
the instance is running.
*/
package metadata
