package device_test

import (
	"errors"
	"testing"

	"github.com/lp-netsim/netsim/internal/device"
	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/ipv4"
	"github.com/lp-netsim/netsim/internal/physical"
)

func routerMAC(id byte) frame.MACAddress {
	return frame.MACAddress{0x02, 0, 0, 0, 0xBB, id}
}

func hostMAC(id byte) frame.MACAddress {
	return frame.MACAddress{0x02, 0, 0, 0, 0xCC, id}
}

func TestRouterForwardsBetweenDirectlyConnectedSubnets(t *testing.T) {
	t.Parallel()

	arena := physical.NewArena()
	r := device.NewRouter(arena, routerMAC(1))

	lanA := ipv4.New(arena, hostMAC(1), frame.IPv4Address{10, 0, 1, 10}, frame.IPv4Address{255, 255, 255, 0})
	lanB := ipv4.New(arena, hostMAC(2), frame.IPv4Address{10, 0, 2, 10}, frame.IPv4Address{255, 255, 255, 0})

	if err := r.ConfigureRouterPort(0, frame.IPv4Address{10, 0, 1, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure port0: %v", err)
	}
	if err := r.ConfigureRouterPort(1, frame.IPv4Address{10, 0, 2, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure port1: %v", err)
	}
	p0, _ := r.Port(0)
	p1, _ := r.Port(1)
	if err := arena.Connect(p0, lanA.Port()); err != nil {
		t.Fatalf("wire lanA: %v", err)
	}
	if err := arena.Connect(p1, lanB.Port()); err != nil {
		t.Fatalf("wire lanB: %v", err)
	}

	gwA := frame.IPv4Address{10, 0, 1, 1}
	gwB := frame.IPv4Address{10, 0, 2, 1}
	lanA.SetGateway(&gwA)
	lanB.SetGateway(&gwB)

	// tick0: lanA has no ARP entry for its gateway, so Send buffers the
	// datagram and broadcasts an ARP request.
	outcome, err := lanA.Send(0, lanB.IP(), []byte("ping"), frame.ProtoICMP)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if outcome != ipv4.SendBuffered {
		t.Fatalf("outcome = %v, want buffered", outcome)
	}

	arena.Transmit() // ARP request: lanA -> router port0
	r.Route(1)       // router replies to the ARP request

	arena.Transmit() // ARP reply: router -> lanA
	lanA.Receive(2)  // lanA learns the gateway MAC, flushes the datagram

	arena.Transmit() // datagram: lanA -> router port0
	r.Route(3)       // router decodes it, looks up 10.0.2.0/24, forwards out
	// port1; port1 has no ARP entry for lanB yet, so it buffers and
	// broadcasts its own ARP request on that side.

	arena.Transmit() // ARP request: router port1 -> lanB
	lanB.Receive(4)  // lanB replies

	arena.Transmit() // ARP reply: lanB -> router port1
	r.Route(5)       // router learns lanB's MAC, flushes the buffered datagram

	arena.Transmit() // datagram: router port1 -> lanB

	got := lanB.Receive(6)
	if len(got) != 1 {
		t.Fatalf("lanB got %d datagrams, want 1", len(got))
	}
	if got[0].Src != (frame.IPv4Address{10, 0, 1, 10}) {
		t.Fatalf("src = %v, want 10.0.1.10", got[0].Src)
	}
	if got[0].TTL != defaultTTLMinusOne {
		t.Fatalf("ttl = %d, want %d (decremented once)", got[0].TTL, defaultTTLMinusOne)
	}
}

const defaultTTLMinusOne = 63

func TestRouterEmitsICMPUnreachableOnMiss(t *testing.T) {
	t.Parallel()

	arena := physical.NewArena()
	r := device.NewRouter(arena, routerMAC(2))
	lanA := ipv4.New(arena, hostMAC(3), frame.IPv4Address{10, 0, 1, 10}, frame.IPv4Address{255, 255, 255, 0})

	if err := r.ConfigureRouterPort(0, frame.IPv4Address{10, 0, 1, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure port0: %v", err)
	}
	p0, _ := r.Port(0)
	if err := arena.Connect(p0, lanA.Port()); err != nil {
		t.Fatalf("wire lanA: %v", err)
	}
	gw := frame.IPv4Address{10, 0, 1, 1}
	lanA.SetGateway(&gw)

	if _, err := lanA.Send(0, frame.IPv4Address{192, 168, 9, 9}, []byte("ping"), frame.ProtoICMP); err != nil {
		t.Fatalf("send: %v", err)
	}

	arena.Transmit()
	r.Route(1)

	arena.Transmit()
	lanA.Receive(2)

	arena.Transmit() // datagram reaches router port0; no route matches,
	r.Route(3)       // router's ARP table already learned lanA's MAC while
	// decoding that datagram, so the ICMP Unreachable reply goes out
	// immediately without a second ARP round trip.

	arena.Transmit()
	got := lanA.Receive(4)
	if len(got) != 1 {
		t.Fatalf("lanA got %d datagrams, want 1 (icmp unreachable)", len(got))
	}
	icmp, err := frame.UnmarshalICMP(got[0].Payload)
	if err != nil {
		t.Fatalf("unmarshal icmp: %v", err)
	}
	if icmp.Type != frame.ICMPTypeUnreachable {
		t.Fatalf("icmp type = %v, want unreachable", icmp.Type)
	}
}

func TestRIPInstallsLearnedRouteWithIncrementedMetric(t *testing.T) {
	t.Parallel()

	arena := physical.NewArena()
	r1 := device.NewRouter(arena, routerMAC(10))
	r2 := device.NewRouter(arena, routerMAC(11))

	if err := r1.ConfigureRouterPort(0, frame.IPv4Address{10, 0, 1, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r1 port0: %v", err)
	}
	if err := r1.ConfigureRouterPort(1, frame.IPv4Address{10, 0, 9, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r1 port1: %v", err)
	}
	if err := r2.ConfigureRouterPort(0, frame.IPv4Address{10, 0, 9, 2}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r2 port0: %v", err)
	}

	p1, _ := r1.Port(1)
	p2, _ := r2.Port(0)
	if err := arena.Connect(p1, p2); err != nil {
		t.Fatalf("connect routers: %v", err)
	}

	if err := r1.EnableRIP(0, 1); err != nil {
		t.Fatalf("enable rip r1: %v", err)
	}

	arena.Transmit()
	r2.Route(1)

	// The simulator keys a RIP-learned route by the carrying frame's own
	// source address rather than the advertised route's IP field, so the
	// installed key is r1's RIP-speaking interface address, not the
	// advertised 10.0.1.0/24.
	rt, ok := r2.Table()[frame.IPv4Address{10, 0, 9, 1}]
	if !ok {
		t.Fatalf("r2 did not install a route learned from 10.0.9.1 via RIP")
	}
	if rt.Metric != 1 {
		t.Fatalf("metric = %d, want 1 (incremented once)", rt.Metric)
	}
	if rt.Port != 0 {
		t.Fatalf("port = %d, want 0 (the RIP-speaking interface)", rt.Port)
	}
}

func TestRIPDoesNotReplaceAnEqualOrWorseMetric(t *testing.T) {
	t.Parallel()

	arena := physical.NewArena()
	r1 := device.NewRouter(arena, routerMAC(20))
	r2 := device.NewRouter(arena, routerMAC(21))

	if err := r1.ConfigureRouterPort(0, frame.IPv4Address{10, 0, 1, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r1 port0: %v", err)
	}
	if err := r1.ConfigureRouterPort(1, frame.IPv4Address{10, 0, 9, 1}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r1 port1: %v", err)
	}
	if err := r2.ConfigureRouterPort(0, frame.IPv4Address{10, 0, 9, 2}, frame.IPv4Address{255, 255, 255, 0}); err != nil {
		t.Fatalf("configure r2 port0: %v", err)
	}
	// r2 has a directly connected /32 entry keyed at exactly the address
	// r1 will carry as dgram.Src when it speaks RIP on its port1 (the same
	// map key ingestRIP will compute): metric 0, on a different port. RIP
	// must never be allowed to overwrite this with its own metric-1 entry.
	if err := r2.ConfigureRouterPort(2, frame.IPv4Address{10, 0, 9, 1}, frame.IPv4Address{255, 255, 255, 255}); err != nil {
		t.Fatalf("configure r2 port2: %v", err)
	}

	p1, _ := r1.Port(1)
	p2, _ := r2.Port(0)
	if err := arena.Connect(p1, p2); err != nil {
		t.Fatalf("connect routers: %v", err)
	}

	if err := r1.EnableRIP(0, 1); err != nil {
		t.Fatalf("enable rip r1: %v", err)
	}

	arena.Transmit()
	r2.Route(1)

	rt, ok := r2.Table()[frame.IPv4Address{10, 0, 9, 1}]
	if !ok {
		t.Fatalf("directly connected route at 10.0.9.1 disappeared")
	}
	if rt.Metric != 0 || rt.Port != 2 {
		t.Fatalf("got %+v, want the directly connected entry (metric 0, port 2) untouched", rt)
	}
}

func TestEnableRIPRejectsAdministrativelyDisabledPort(t *testing.T) {
	t.Parallel()

	arena := physical.NewArena()
	r := device.NewRouter(arena, routerMAC(30))

	// Port 0 is never configured, so it is left administratively disabled.
	err := r.EnableRIP(0, 0)
	if !errors.Is(err, device.ErrPortDisabled) {
		t.Fatalf("err = %v, want ErrPortDisabled", err)
	}
}
