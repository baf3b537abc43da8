package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timer measures a duration and optionally records it in a histogram
type Timer struct {
	start time.Time
}

// NewTimer creates a timer started now
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Start returns when the timer was started
func (t *Timer) Start() time.Time {
	return t.start
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds in the given histogram
// and returns the measured duration.
func (t *Timer) ObserveDuration(h prometheus.Histogram) time.Duration {
	d := t.Duration()
	h.Observe(d.Seconds())
	return d
}
