package netsimmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "netsim"
	subsystem = "sim"
)

// Label names for simulator metrics.
const (
	labelDevice   = "device"
	labelPort     = "port"
	labelFromRole = "from_role"
	labelToRole   = "to_role"
)

// -------------------------------------------------------------------------
// Collector: Prometheus Simulator Metrics
// -------------------------------------------------------------------------

// Collector holds all simulator Prometheus metrics.
//
//   - Frame counters track transmitted/dropped traffic per device port.
//   - RSTP role transition counters record bridge topology changes.
//   - ARP counters flag unresolved hosts and retry exhaustion.
//   - Route metrics track RIP learning and router forwarding misses.
type Collector struct {
	// FramesSent counts Ethernet frames transmitted per device port.
	FramesSent *prometheus.CounterVec

	// FramesDropped counts frames dropped at a port (e.g. a disconnected
	// or disabled port whose queue is discarded rather than forwarded).
	FramesDropped *prometheus.CounterVec

	// RSTPRoleTransitions counts RSTP port role changes. Each counter is
	// labeled with the old role and new role, mirroring a bridge's
	// topology change log.
	RSTPRoleTransitions *prometheus.CounterVec

	// ARPRetries counts ARP request retransmissions issued by the pending
	// buffer.
	ARPRetries *prometheus.CounterVec

	// ARPExhausted counts pending sends evicted after exhausting their
	// retry budget without a resolution.
	ARPExhausted *prometheus.CounterVec

	// RIPRouteInstalls counts routes installed or updated by RIP ingestion.
	RIPRouteInstalls *prometheus.CounterVec

	// ForwardingMisses counts datagrams a router could not find a route
	// for  (answered with ICMP Destination Unreachable).
	ForwardingMisses *prometheus.CounterVec
}

// NewCollector creates a Collector with all simulator metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics are created with the "netsim_sim_" prefix (namespace_subsystem)
// to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.FramesSent,
		c.FramesDropped,
		c.RSTPRoleTransitions,
		c.ARPRetries,
		c.ARPExhausted,
		c.RIPRouteInstalls,
		c.ForwardingMisses,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	portLabels := []string{labelDevice, labelPort}
	transitionLabels := []string{labelDevice, labelPort, labelFromRole, labelToRole}
	deviceLabels := []string{labelDevice}

	return &Collector{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_sent_total",
			Help:      "Total Ethernet frames transmitted, per device port.",
		}, portLabels),

		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_dropped_total",
			Help:      "Total frames dropped at a port.",
		}, portLabels),

		RSTPRoleTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rstp_role_transitions_total",
			Help:      "Total RSTP port role transitions.",
		}, transitionLabels),

		ARPRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "arp_retries_total",
			Help:      "Total ARP request retransmissions issued by the pending buffer.",
		}, deviceLabels),

		ARPExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "arp_exhausted_total",
			Help:      "Total pending sends evicted after exhausting their ARP retry budget.",
		}, deviceLabels),

		RIPRouteInstalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rip_route_installs_total",
			Help:      "Total routes installed or updated by RIP ingestion.",
		}, deviceLabels),

		ForwardingMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "forwarding_misses_total",
			Help:      "Total datagrams a router could not find a route for.",
		}, deviceLabels),
	}
}

// -------------------------------------------------------------------------
// Frame Counters
// -------------------------------------------------------------------------

// IncFramesSent increments the transmitted frame counter for a device port.
func (c *Collector) IncFramesSent(device, port string) {
	c.FramesSent.WithLabelValues(device, port).Inc()
}

// IncFramesDropped increments the dropped frame counter for a device port.
func (c *Collector) IncFramesDropped(device, port string) {
	c.FramesDropped.WithLabelValues(device, port).Inc()
}

// -------------------------------------------------------------------------
// RSTP
// -------------------------------------------------------------------------

// RecordRoleTransition increments the RSTP role transition counter with
// the old and new role labels.
func (c *Collector) RecordRoleTransition(device, port, from, to string) {
	c.RSTPRoleTransitions.WithLabelValues(device, port, from, to).Inc()
}

// -------------------------------------------------------------------------
// ARP
// -------------------------------------------------------------------------

// IncARPRetries increments the ARP retry counter for a device.
func (c *Collector) IncARPRetries(device string) {
	c.ARPRetries.WithLabelValues(device).Inc()
}

// IncARPExhausted increments the ARP retry exhaustion counter for a device.
func (c *Collector) IncARPExhausted(device string) {
	c.ARPExhausted.WithLabelValues(device).Inc()
}

// -------------------------------------------------------------------------
// Routing
// -------------------------------------------------------------------------

// IncRIPRouteInstalls increments the RIP route install counter for a router.
func (c *Collector) IncRIPRouteInstalls(device string) {
	c.RIPRouteInstalls.WithLabelValues(device).Inc()
}

// IncForwardingMisses increments the forwarding miss counter for a router.
func (c *Collector) IncForwardingMisses(device string) {
	c.ForwardingMisses.WithLabelValues(device).Inc()
}
