package ipv4_test

import (
	"errors"
	"testing"

	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/ipv4"
	"github.com/lp-netsim/netsim/internal/physical"
)

func mac(last byte) frame.MACAddress {
	return frame.MACAddress{0x02, 0, 0, 0, 0, last}
}

func linked(t *testing.T) (a, b *ipv4.Interface, arena *physical.Arena) {
	t.Helper()
	arena = physical.NewArena()
	mask := frame.IPv4Address{255, 255, 255, 0}
	a = ipv4.New(arena, mac(1), frame.IPv4Address{10, 0, 0, 1}, mask)
	b = ipv4.New(arena, mac(2), frame.IPv4Address{10, 0, 0, 2}, mask)
	if err := a.Connect(b); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a, b, arena
}

// resolveARP drives the wire through exactly one ARP request/reply
// exchange between a and b: a must already have broadcast a request.
func resolveARP(a, b *ipv4.Interface, arena *physical.Arena) {
	arena.Transmit()      // request: a -> b
	b.Receive(0)          // b learns a, replies
	arena.Transmit()      // reply: b -> a
	a.Receive(1)          // a learns b, flushes any pending datagram
	arena.Transmit()      // datagram (if any): a -> b
}

func TestSendUnknownMACBuffersAndBroadcastsARP(t *testing.T) {
	t.Parallel()
	a, b, arena := linked(t)

	outcome, err := a.Sendv(0, a.IP(), b.IP(), nil, 64, []byte("payload"), frame.ProtoTest)
	if err != nil {
		t.Fatalf("sendv: %v", err)
	}
	if outcome != ipv4.SendBuffered {
		t.Fatalf("outcome = %v, want buffered", outcome)
	}

	arena.Transmit()
	got := b.Receive(0)
	if len(got) != 0 {
		t.Fatalf("b should not see an IPv4 frame yet: %v", got)
	}
}

func TestARPResolutionDeliversBufferedFrame(t *testing.T) {
	t.Parallel()
	a, b, arena := linked(t)

	if _, err := a.Sendv(0, a.IP(), b.IP(), nil, 64, []byte("payload"), frame.ProtoTest); err != nil {
		t.Fatalf("sendv: %v", err)
	}
	resolveARP(a, b, arena)

	got := b.Receive(2)
	if len(got) != 1 {
		t.Fatalf("got %d ipv4 frames at b, want 1", len(got))
	}
	if got[0].Protocol != frame.ProtoTest || string(got[0].Payload) != "payload" {
		t.Fatalf("got %+v", got[0])
	}
}

func TestSendToSelfDeliversImmediatelyWithoutCable(t *testing.T) {
	t.Parallel()
	a, _, _ := linked(t)

	outcome, err := a.Send(0, a.IP(), []byte("loop"), frame.ProtoTest)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if outcome != ipv4.SendSent {
		t.Fatalf("outcome = %v, want sent", outcome)
	}

	got := a.Receive(0)
	if len(got) != 1 || string(got[0].Payload) != "loop" {
		t.Fatalf("got %+v, want self-delivered loop payload", got)
	}
}

func TestLoopbackAddressAlwaysSelfDelivers(t *testing.T) {
	t.Parallel()
	a, _, _ := linked(t)

	outcome, err := a.Send(0, frame.LoopbackIPv4, []byte("x"), frame.ProtoTest)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if outcome != ipv4.SendSent {
		t.Fatalf("outcome = %v, want sent", outcome)
	}
	got := a.Receive(0)
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
}

func TestOffSubnetWithNoGatewayIsUnreachable(t *testing.T) {
	t.Parallel()
	a, _, _ := linked(t)

	far := frame.IPv4Address{192, 168, 1, 1}
	_, err := a.Sendv(0, a.IP(), far, nil, 64, []byte("x"), frame.ProtoTest)
	if !errors.Is(err, ipv4.ErrUnreachable) {
		t.Fatalf("want ErrUnreachable, got %v", err)
	}
}

func TestRouterInterfaceSelfLoopsUnresolvedDestination(t *testing.T) {
	t.Parallel()

	arena := physical.NewArena()
	mask := frame.IPv4Address{255, 255, 255, 0}
	r := ipv4.NewRouterInterface(arena, mac(9), frame.IPv4Address{10, 0, 0, 1}, mask)

	far := frame.IPv4Address{192, 168, 1, 1}
	outcome, err := r.Sendv(0, r.IP(), far, nil, 64, []byte("route me"), frame.ProtoTest)
	if err != nil {
		t.Fatalf("sendv: %v", err)
	}
	if outcome != ipv4.SendSent {
		t.Fatalf("outcome = %v, want sent (self-loop)", outcome)
	}

	got := r.Receive(0)
	if len(got) != 1 || got[0].Dst != far {
		t.Fatalf("got %+v, want self-looped frame to %v", got, far)
	}
}

func TestICMPEchoReflex(t *testing.T) {
	t.Parallel()
	a, b, arena := linked(t)

	// Resolve ARP both ways with a throwaway datagram first.
	if _, err := a.Sendv(0, a.IP(), b.IP(), nil, 64, []byte("warmup"), frame.ProtoTest); err != nil {
		t.Fatalf("sendv: %v", err)
	}
	resolveARP(a, b, arena)
	b.Receive(2)

	if err := a.SendICMP(3, b.IP(), frame.ICMPTypeEchoRequest); err != nil {
		t.Fatalf("send icmp: %v", err)
	}
	arena.Transmit()

	// b auto-replies to the echo request without surfacing it upward.
	got := b.Receive(4)
	if len(got) != 0 {
		t.Fatalf("echo request leaked to upper layer: %v", got)
	}
	arena.Transmit()

	got = a.Receive(5)
	if len(got) != 1 {
		t.Fatalf("got %d frames at a, want 1 echo reply", len(got))
	}
	icmp, err := frame.UnmarshalICMP(got[0].Payload)
	if err != nil {
		t.Fatalf("unmarshal icmp: %v", err)
	}
	if icmp.Type != frame.ICMPTypeEchoReply {
		t.Fatalf("type = %v, want EchoReply", icmp.Type)
	}
}

func TestMulticastUsesRIPAddressAndMAC(t *testing.T) {
	t.Parallel()
	a, b, arena := linked(t)

	if err := a.Multicast([]byte("rip payload"), frame.ProtoRIP); err != nil {
		t.Fatalf("multicast: %v", err)
	}
	arena.Transmit()

	got := b.Receive(0)
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if got[0].Dst != frame.RIPMulticastIPv4 {
		t.Fatalf("dst = %v, want RIP multicast", got[0].Dst)
	}
}

func TestPassiveLearningNeverCachesMulticastSource(t *testing.T) {
	t.Parallel()
	a, _, arena := linked(t)

	// Inject a frame whose Ethernet source is the BPDU group address,
	// disguised as an ordinary IPv4 payload, directly into a's own
	// incoming buffer.
	dgram, err := frame.MarshalIPv4(frame.IPv4Frame{TTL: 64, Protocol: frame.ProtoTest, Src: frame.IPv4Address{10, 0, 0, 99}, Dst: a.IP(), Payload: []byte("x")})
	if err != nil {
		t.Fatalf("marshal ipv4: %v", err)
	}
	// MarshalEthernetII leaves padding to its caller: pad the 21-byte
	// datagram to the 46-byte minimum Ethernet II payload.
	padded := make([]byte, 46)
	copy(padded, dgram)
	buf, err := frame.MarshalEthernetII(a.MAC(), frame.BPDUGroupMAC, frame.EtherTypeIPv4, padded)
	if err != nil {
		t.Fatalf("marshal ethernet: %v", err)
	}
	if err := arena.SendToSelf(a.Port(), buf); err != nil {
		t.Fatalf("inject: %v", err)
	}

	a.Receive(0)
	if _, ok := a.ARPTableLookup(frame.IPv4Address{10, 0, 0, 99}); ok {
		t.Fatalf("learned a binding from a multicast/broadcast source MAC")
	}
}

func TestARPBufferRetriesThenEvicts(t *testing.T) {
	t.Parallel()
	a, _, _ := linked(t)

	// No interface owns 10.0.0.200, so nobody ever answers the request:
	// this entry will exhaust all its retries and must eventually stop
	// re-broadcasting.
	unresolved := frame.IPv4Address{10, 0, 0, 200}
	if _, err := a.Sendv(0, a.IP(), unresolved, nil, 64, []byte("x"), frame.ProtoTest); err != nil {
		t.Fatalf("sendv: %v", err)
	}

	// Drain the initial broadcast.
	a.Receive(0)

	// Walk ticks 30, 60, 90 (three retries), then 120 should evict with
	// no further broadcast. We only assert this does not panic or loop
	// forever; retry bookkeeping is internal.
	for _, tk := range []uint64{30, 60, 90, 120, 150} {
		a.Receive(tk)
	}
}
