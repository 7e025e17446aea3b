package netsimmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	netsimmetrics "github.com/lp-netsim/netsim/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := netsimmetrics.NewCollector(reg)

	if c.FramesSent == nil {
		t.Error("FramesSent is nil")
	}
	if c.FramesDropped == nil {
		t.Error("FramesDropped is nil")
	}
	if c.RSTPRoleTransitions == nil {
		t.Error("RSTPRoleTransitions is nil")
	}
	if c.ARPRetries == nil {
		t.Error("ARPRetries is nil")
	}
	if c.ARPExhausted == nil {
		t.Error("ARPExhausted is nil")
	}
	if c.RIPRouteInstalls == nil {
		t.Error("RIPRouteInstalls is nil")
	}
	if c.ForwardingMisses == nil {
		t.Error("ForwardingMisses is nil")
	}

	// Verify all metrics are registered by gathering them.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	// No data yet, so families may be empty -- but registration must not panic.
	_ = families
}

func TestFrameCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := netsimmetrics.NewCollector(reg)

	c.IncFramesSent("sw1", "0")
	c.IncFramesSent("sw1", "0")
	c.IncFramesSent("sw1", "0")

	val := counterValue(t, c.FramesSent, "sw1", "0")
	if val != 3 {
		t.Errorf("FramesSent = %v, want 3", val)
	}

	c.IncFramesDropped("sw1", "1")

	val = counterValue(t, c.FramesDropped, "sw1", "1")
	if val != 1 {
		t.Errorf("FramesDropped = %v, want 1", val)
	}
}

func TestRoleTransition(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := netsimmetrics.NewCollector(reg)

	c.RecordRoleTransition("sw1", "2", "Designated", "Root")

	val := counterValue(t, c.RSTPRoleTransitions, "sw1", "2", "Designated", "Root")
	if val != 1 {
		t.Errorf("RSTPRoleTransitions(Designated->Root) = %v, want 1", val)
	}

	// A second, distinct transition should not affect the first's counter.
	c.RecordRoleTransition("sw1", "2", "Root", "Alternate")

	val = counterValue(t, c.RSTPRoleTransitions, "sw1", "2", "Root", "Alternate")
	if val != 1 {
		t.Errorf("RSTPRoleTransitions(Root->Alternate) = %v, want 1", val)
	}

	val = counterValue(t, c.RSTPRoleTransitions, "sw1", "2", "Designated", "Root")
	if val != 1 {
		t.Errorf("RSTPRoleTransitions(Designated->Root) = %v, want 1 (unaffected)", val)
	}
}

func TestARPCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := netsimmetrics.NewCollector(reg)

	c.IncARPRetries("h1")
	c.IncARPRetries("h1")

	val := counterValue(t, c.ARPRetries, "h1")
	if val != 2 {
		t.Errorf("ARPRetries = %v, want 2", val)
	}

	c.IncARPExhausted("h1")

	val = counterValue(t, c.ARPExhausted, "h1")
	if val != 1 {
		t.Errorf("ARPExhausted = %v, want 1", val)
	}
}

func TestRoutingCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := netsimmetrics.NewCollector(reg)

	c.IncRIPRouteInstalls("r1")
	c.IncRIPRouteInstalls("r1")
	c.IncRIPRouteInstalls("r1")

	val := counterValue(t, c.RIPRouteInstalls, "r1")
	if val != 3 {
		t.Errorf("RIPRouteInstalls = %v, want 3", val)
	}

	c.IncForwardingMisses("r1")

	val = counterValue(t, c.ForwardingMisses, "r1")
	if val != 1 {
		t.Errorf("ForwardingMisses = %v, want 1", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
