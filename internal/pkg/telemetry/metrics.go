package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Explorer
	MetricRecomputeLatency = "explorer.recompute_latency"
	MetricActiveSessions   = "explorer.active_sessions"

	// Data freshness
	MetricFeedAge = "feed.data_age_seconds"

	// Availability
	MetricUptime = "service.uptime_percentage"
)
