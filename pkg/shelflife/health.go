package shelflife

import (
	"github.com/shelflife/shelflife/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// EngineHealth contains overall cache health information.
	EngineHealth = types.EngineHealth

	// StoreHealth contains the probe result for one backend store.
	StoreHealth = types.StoreHealth

	// MetricsSnapshot contains a point-in-time view of cache metrics.
	MetricsSnapshot = types.MetricsSnapshot
)

// Re-export health status constants.
const (
	HealthStatusHealthy   = types.HealthStatusHealthy
	HealthStatusDegraded  = types.HealthStatusDegraded
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
