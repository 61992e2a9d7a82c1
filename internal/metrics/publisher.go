package metrics

import "time"

// Publisher sends metrics to an external sink. Implementations must be
// safe for concurrent use and must never block the caller for long.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text string, alertType string, tags ...string)
	Close() error
}
