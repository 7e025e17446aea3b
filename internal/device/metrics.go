package device

// MetricsSink receives simulator telemetry a Switch or Router emits as a
// side effect of its own state changes. It is satisfied structurally by
// internal/metrics.Collector; device never imports that package, so the
// core stays free of the daemon's Prometheus dependency. A nil sink is a
// silent no-op; wiring one in is the daemon's job, not the simulation
// core's.
type MetricsSink interface {
	RecordRoleTransition(device, port, from, to string)
	IncRIPRouteInstalls(device string)
	IncForwardingMisses(device string)
}
