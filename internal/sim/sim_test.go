package sim_test

import (
	"testing"

	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/sim"
)

func mac(last byte) frame.MACAddress {
	return frame.MACAddress{0x02, 0, 0, 0, 0, last}
}

func TestSimulationWiresDesktopsThroughASwitch(t *testing.T) {
	t.Parallel()

	s := sim.New()

	swh := s.NewSwitch(mac(0xAA), 32768)
	h1 := s.NewDesktop(mac(1), frame.IPv4Address{10, 0, 0, 10}, frame.IPv4Address{255, 255, 255, 0})
	h2 := s.NewDesktop(mac(2), frame.IPv4Address{10, 0, 0, 11}, frame.IPv4Address{255, 255, 255, 0})

	if err := s.Connect(h1, 0, swh, 0); err != nil {
		t.Fatalf("connect h1: %v", err)
	}
	if err := s.Connect(h2, 0, swh, 1); err != nil {
		t.Fatalf("connect h2: %v", err)
	}

	if _, err := s.Send(h1, frame.IPv4Address{10, 0, 0, 11}, []byte("ping"), frame.ProtoTest); err != nil {
		t.Fatalf("send: %v", err)
	}

	// The ping sits buffered behind an ARP exchange, and every hop through
	// the switch costs one more tick than the device-level processing
	// that causes it: h1's ARP request reaches the switch (1), floods to
	// h2 (2), h2's reply reaches the switch (3), unicasts back to h1 (4),
	// h1 resolves the reply and flushes the buffered datagram (5), the
	// switch forwards it to h2 (6), and h2 decodes it (7).
	s.Run(7)

	got, err := s.Receive(h2)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("h2 got %d datagrams, want 1", len(got))
	}
	if string(got[0].Payload) != "ping" {
		t.Fatalf("payload = %q, want %q", got[0].Payload, "ping")
	}
}

func TestSimulationDeleteDeviceFreesItsPorts(t *testing.T) {
	t.Parallel()

	s := sim.New()
	rh := s.NewRouter(mac(0xBB))
	dh := s.NewDesktop(mac(3), frame.IPv4Address{10, 0, 0, 10}, frame.IPv4Address{255, 255, 255, 0})

	if err := s.Connect(dh, 0, rh, 0); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.DeleteDevice(dh); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The router's port 0 should now be unpaired, so reconnecting it to a
	// fresh device must succeed rather than fail with ErrPortBusy.
	dh2 := s.NewDesktop(mac(4), frame.IPv4Address{10, 0, 0, 11}, frame.IPv4Address{255, 255, 255, 0})
	if err := s.Connect(dh2, 0, rh, 0); err != nil {
		t.Fatalf("reconnect after delete: %v", err)
	}

	if _, err := s.Kind(dh); err == nil {
		t.Fatalf("deleted device handle still resolves")
	}
}

func TestSimulationEnableRIPAdvertisesImmediately(t *testing.T) {
	t.Parallel()

	s := sim.New()
	r1 := s.NewRouter(mac(0x10))
	r2 := s.NewRouter(mac(0x11))

	if err := s.ConfigureRouterPort(r1, 0, frame.IPv4Address{10, 0, 1, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r1 port0: %v", err)
	}
	if err := s.ConfigureRouterPort(r1, 1, frame.IPv4Address{10, 0, 9, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r1 port1: %v", err)
	}
	if err := s.ConfigureRouterPort(r2, 0, frame.IPv4Address{10, 0, 9, 2}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r2 port0: %v", err)
	}
	if err := s.Connect(r1, 1, r2, 0); err != nil {
		t.Fatalf("connect routers: %v", err)
	}

	if err := s.EnableRIP(r1, 1); err != nil {
		t.Fatalf("enable rip: %v", err)
	}

	// EnableRIP queues the advertisement into r1's outgoing buffer right
	// away, but a device only sees its peer's queue after a Step's
	// Transmit has run, and Route only drains incoming at the start of
	// its own Step: one tick to deliver, a second for r2 to ingest it.
	s.Run(2)

	table, err := s.RouteTable(r2)
	if err != nil {
		t.Fatalf("route table: %v", err)
	}
	rt, ok := table[frame.IPv4Address{10, 0, 9, 1}]
	if !ok {
		t.Fatalf("r2 never learned a route via RIP, table = %+v", table)
	}
	if rt.Metric != 1 {
		t.Fatalf("metric = %d, want 1", rt.Metric)
	}
}

func TestSimulationEnableRSTPDefaultsToPlainBridge(t *testing.T) {
	t.Parallel()

	s := sim.New()
	swh := s.NewSwitch(mac(0xCC), 32768)

	if err := s.EnableRSTP(swh); err != nil {
		t.Fatalf("enable rstp: %v", err)
	}
	if err := s.DisableRSTP(swh); err != nil {
		t.Fatalf("disable rstp: %v", err)
	}

	rh := s.NewRouter(mac(0xDD))
	if err := s.SetBridgePriority(rh, 1); err == nil {
		t.Fatalf("expected ErrWrongDeviceKind against a non-switch handle")
	}
}
