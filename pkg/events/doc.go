/*
Package events provides an in-process publish/subscribe broker for worker
lifecycle events.

The lifecycle manager publishes an event for every major transition
(readiness ticks, config resolution, stage start/finish, termination).
Subscribers receive events on buffered channels; a slow subscriber drops
events rather than blocking the lifecycle. The run journal subscribes to
persist stage outcomes, and tests subscribe to assert event ordering.
*/
package events
