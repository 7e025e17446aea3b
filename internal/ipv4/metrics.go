package ipv4

// MetricsSink receives telemetry an Interface emits from its ARP pending
// buffer. Satisfied structurally by internal/metrics.Collector; ipv4
// never imports that package. A nil sink is a silent no-op.
type MetricsSink interface {
	IncARPRetries(device string)
	IncARPExhausted(device string)
}
