package types

import "time"

// HealthStatus represents the overall health state.
type HealthStatus int

const (
	// HealthStatusHealthy indicates both stores are reachable.
	HealthStatusHealthy HealthStatus = iota + 1
	// HealthStatusDegraded indicates one store is failing; the engine
	// keeps serving through silent degradation.
	HealthStatusDegraded
	// HealthStatusUnhealthy indicates both stores are failing, or the
	// engine has been closed.
	HealthStatusUnhealthy
)

// String returns the string representation of health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// StoreHealth contains the probe result for one backend store.
type StoreHealth struct {
	Name      string
	Available bool
	Latency   time.Duration
	Error     string
	Status    HealthStatus
}

// EngineHealth contains overall engine health information.
type EngineHealth struct {
	Timestamp    time.Time
	Short        StoreHealth
	Long         StoreHealth
	IndexEntries int
	Status       HealthStatus
}

// MetricsSnapshot contains a point-in-time view of engine metrics.
//
//nolint:govet // Metrics struct with many counters - grouping by category improves readability
type MetricsSnapshot struct {
	Timestamp time.Time

	// Read path. Hits are fresh index hits; Refreshes are gets
	// answered from a backend (stale revival, or an index miss backed
	// by persisted data); Synthesized counts misses that materialized
	// a null entry.
	Hits        int64
	Refreshes   int64
	Synthesized int64

	// Write path.
	Sets    int64
	Deletes int64
	Wipes   int64

	// Store faults absorbed by silent degradation.
	Errors int64

	// Latency metrics (milliseconds) over recent operations.
	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64

	// IndexEntries is filled in by the engine, not the tracker.
	IndexEntries int
}

// HitRatio calculates the fraction of gets served without touching a
// backend.
func (s *MetricsSnapshot) HitRatio() float64 {
	total := s.Hits + s.Refreshes + s.Synthesized
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
