/*
Package journal persists each run's lifecycle to a local BoltDB file.

Logs are the primary operator surface, but an ephemeral worker's logs can
be lost exactly when they matter most: when shipping to the log sink
itself failed. The journal is the fallback: a small database on the boot
disk recording the run, every state transition in order, and per-stage
outcomes. When a run goes wrong the disk (or its snapshot) tells the
whole story even after the instance is gone.

Journal writes are never fatal: a worker that cannot journal still
processes its task and still deletes itself.
*/
package journal
