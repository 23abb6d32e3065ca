package xframe

import "time"

// BusMetrics is a snapshot of Bus telemetry.
type BusMetrics struct {
	Published         uint64  `json:"published"`
	Dropped           uint64  `json:"dropped"`     // publishes refused for lack of listeners
	Dispatched        uint64  `json:"dispatched"`  // queued and immediate dispatches
	Delivered         uint64  `json:"delivered"`   // dispatches that reached a listener
	Consumed          uint64  `json:"consumed"`    // dispatches stopped by a listener
	Undelivered       uint64  `json:"undelivered"` // dispatches that found no listener
	ListenerPanics    uint64  `json:"listener_panics"`
	Pending           int     `json:"pending"`
	Kinds             int     `json:"kinds"`
	AvgDispatchTimeMs float64 `json:"avg_dispatch_time_ms"`
}

// SchedulerMetrics is a snapshot of Scheduler telemetry.
type SchedulerMetrics struct {
	Ticks       uint64        `json:"ticks"`
	Passes      uint64        `json:"passes"`
	Thinks      uint64        `json:"thinks"`
	ThinkPanics uint64        `json:"think_panics"`
	ThinkErrors uint64        `json:"think_errors"` // middleware errors other than panics
	SlowThinks  uint64        `json:"slow_thinks"`
	Registered  int           `json:"registered"`
	Paused      bool          `json:"paused"`
	Interval    time.Duration `json:"interval"`
	LastPass    time.Duration `json:"last_pass"`
}

// PoolMetrics is a snapshot of pool registry telemetry.
type PoolMetrics struct {
	Spawned         uint64 `json:"spawned"`
	Reused          uint64 `json:"reused"`
	Created         uint64 `json:"created"`
	Despawned       uint64 `json:"despawned"`
	DespawnFailures uint64 `json:"despawn_failures"`
	Pools           int    `json:"pools"`
	Active          int    `json:"active"`
}

// PoolStats is the roll call entry of one prototype pool.
type PoolStats struct {
	Prototype string `json:"prototype"`
	Active    int    `json:"active"`
	Inactive  int    `json:"inactive"`
}

// HealthStatus indicates world health for health checks.
type HealthStatus struct {
	Status    string           `json:"status"` // "healthy", "degraded", "unhealthy"
	Bus       BusMetrics       `json:"bus"`
	Scheduler SchedulerMetrics `json:"scheduler"`
	Pools     PoolMetrics      `json:"pools"`
	Journal   JournalStats     `json:"journal"`
	Timestamp time.Time        `json:"timestamp"`
	Message   string           `json:"message,omitempty"`
}
