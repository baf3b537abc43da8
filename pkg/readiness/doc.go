/*
Package readiness gates the lifecycle on a hardware dependency becoming
available within a bounded wait.

On a freshly created GPU instance the driver install races with the rest
of boot: package installation, device initialization and the startup
service all come up at once, and running inference against a
half-initialized device fails in confusing ways. The gate makes that race
explicit: it polls an injectable boolean Probe at a fixed interval until
the probe reports ready or the bound expires.

	┌──────────────────────────────────────────────┐
	│                    Gate                      │
	│  Wait(ctx):                                  │
	│    every Interval → Probe.Check(ctx)         │
	│    ready  → return nil                       │
	│    expiry → return ErrTimeout (fatal)        │
	└──────────────────┬───────────────────────────┘
	                   │
	         ┌─────────┴─────────┐
	         ▼                   ▼
	    ┌─────────┐        ┌──────────┐
	    │ExecProbe│        │ProbeFunc │
	    │nvidia-smi│       │ (tests)  │
	    └─────────┘        └──────────┘

The gate never polls tighter than its interval, logs every unsuccessful
attempt at warn level, and guarantees Wait returns within roughly
MaxWait + one interval. A timeout is fatal to the run; the termination
guard still fires.
*/
package readiness
