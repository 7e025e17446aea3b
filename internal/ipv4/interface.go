package ipv4

import (
	"fmt"

	"github.com/lp-netsim/netsim/internal/ethernet"
	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/physical"
	"github.com/lp-netsim/netsim/internal/timer"
)

// SendOutcome reports how Sendv disposed of a datagram.
type SendOutcome int

const (
	// SendSent means the frame was emitted (or self-delivered) this tick.
	SendSent SendOutcome = iota
	// SendBuffered means the frame was queued pending ARP resolution.
	SendBuffered
)

// defaultTTL is the TTL sendv uses when the caller goes through Send
// rather than sendv directly.
const defaultTTL = 64

// Interface is an IPv4 interface: an owned Ethernet interface, an address,
// a subnet mask, an optional default gateway, an ARP table, and a bounded
// ARP pending buffer. Setting isRouter makes it a
// router interface variant: it has no gateway and self-loops unrouted
// frames instead of failing with ErrUnreachable.
type Interface struct {
	eth      ethernet.Interface
	ip       frame.IPv4Address
	mask     frame.IPv4Address
	gateway  *frame.IPv4Address
	isRouter bool

	arpTable map[frame.IPv4Address]frame.MACAddress
	pending  []pendingSend
	wheel    *timer.Wheel

	nextPendingID uint64

	metrics MetricsSink
	name    string
}

// SetMetrics attaches a telemetry sink, labeling every metric this
// interface emits with name. Passing a nil sink disables emission.
func (i *Interface) SetMetrics(name string, sink MetricsSink) {
	i.name = name
	i.metrics = sink
}

// New creates a host IPv4 interface bound to a fresh port in arena.
func New(arena *physical.Arena, mac frame.MACAddress, ip, mask frame.IPv4Address) *Interface {
	return &Interface{
		eth:      ethernet.New(arena, mac),
		ip:       ip,
		mask:     mask,
		arpTable: make(map[frame.IPv4Address]frame.MACAddress),
		wheel:    timer.NewWheel(),
	}
}

// NewRouterInterface creates a router interface variant: no gateway,
// self-loops frames it cannot resolve a next hop for so the owning
// router can reconsult its routing table.
func NewRouterInterface(arena *physical.Arena, mac frame.MACAddress, ip, mask frame.IPv4Address) *Interface {
	iface := New(arena, mac, ip, mask)
	iface.isRouter = true
	return iface
}

// MAC returns the underlying Ethernet interface's hardware address.
func (i *Interface) MAC() frame.MACAddress {
	return i.eth.MAC()
}

// IP returns the interface's configured address.
func (i *Interface) IP() frame.IPv4Address {
	return i.ip
}

// Mask returns the interface's configured subnet mask.
func (i *Interface) Mask() frame.IPv4Address {
	return i.mask
}

// Gateway returns the configured default gateway, or false if unset.
func (i *Interface) Gateway() (frame.IPv4Address, bool) {
	if i.gateway == nil {
		return frame.IPv4Address{}, false
	}
	return *i.gateway, true
}

// SetAddress reconfigures the interface's IP and mask.
func (i *Interface) SetAddress(ip, mask frame.IPv4Address) {
	i.ip = ip
	i.mask = mask
}

// SetGateway sets or clears (pass nil) the default gateway.
func (i *Interface) SetGateway(gw *frame.IPv4Address) {
	i.gateway = gw
}

// Port returns the underlying physical port handle.
func (i *Interface) Port() physical.PortHandle {
	return i.eth.Port()
}

// Connect pairs the underlying Ethernet interfaces.
func (i *Interface) Connect(other *Interface) error {
	return i.eth.Connect(&other.eth)
}

// ConnectPort pairs the underlying port directly with a port handle.
func (i *Interface) ConnectPort(other physical.PortHandle) error {
	return i.eth.ConnectPort(other)
}

// Disconnect unpairs the underlying Ethernet interface.
func (i *Interface) Disconnect() error {
	return i.eth.Disconnect()
}

// Send is sendv with the interface's own address as source, no proxy
// target, and the default TTL.
func (i *Interface) Send(tick uint64, dst frame.IPv4Address, payload []byte, protocol uint8) (SendOutcome, error) {
	return i.Sendv(tick, i.ip, dst, nil, defaultTTL, payload, protocol)
}

// Sendv implements the subnet-aware send decision:
// loopback/self delivery, same-subnet direct ARP, gateway/proxy fallback,
// router self-loop on an unresolved key, and ARP-buffered retry.
func (i *Interface) Sendv(tick uint64, src, dst frame.IPv4Address, proxied *frame.IPv4Address, ttl uint8, payload []byte, protocol uint8) (SendOutcome, error) {
	if dst.IsLoopback() || dst == i.ip {
		if err := i.sendToSelfDatagram(src, dst, ttl, payload, protocol); err != nil {
			return SendSent, fmt.Errorf("ipv4 sendv: %w", err)
		}
		return SendSent, nil
	}

	key, haveKey := i.resolutionKey(dst, proxied)

	if !haveKey {
		if i.isRouter {
			if err := i.sendToSelfDatagram(src, dst, ttl, payload, protocol); err != nil {
				return SendSent, fmt.Errorf("ipv4 sendv: %w", err)
			}
			return SendSent, nil
		}
		return SendBuffered, fmt.Errorf("ipv4 sendv: no route to %s: %w", dst, ErrUnreachable)
	}

	datagram, err := frame.MarshalIPv4(frame.IPv4Frame{
		TTL:      ttl,
		Protocol: protocol,
		Src:      src,
		Dst:      dst,
		Payload:  payload,
	})
	if err != nil {
		return SendBuffered, fmt.Errorf("ipv4 sendv: %w", err)
	}

	if mac, ok := i.arpTable[key]; ok {
		if err := i.eth.Sendv(i.eth.MAC(), mac, frame.EtherTypeIPv4, datagram); err != nil {
			return SendSent, fmt.Errorf("ipv4 sendv: %w", err)
		}
		return SendSent, nil
	}

	i.enqueuePending(tick, key, datagram)
	if err := i.eth.ARPRequest(i.ip, key); err != nil {
		return SendBuffered, fmt.Errorf("ipv4 sendv: %w", err)
	}
	return SendBuffered, nil
}

// resolutionKey picks the IP sendv should resolve a MAC for: the
// destination itself if it's on-link, else the proxy target, else the
// default gateway.
func (i *Interface) resolutionKey(dst frame.IPv4Address, proxied *frame.IPv4Address) (frame.IPv4Address, bool) {
	if dst.SameSubnet(i.ip, i.mask) {
		return dst, true
	}
	if proxied != nil {
		return *proxied, true
	}
	if i.gateway != nil {
		return *i.gateway, true
	}
	return frame.IPv4Address{}, false
}

func (i *Interface) sendToSelfDatagram(src, dst frame.IPv4Address, ttl uint8, payload []byte, protocol uint8) error {
	datagram, err := frame.MarshalIPv4(frame.IPv4Frame{
		TTL:      ttl,
		Protocol: protocol,
		Src:      src,
		Dst:      dst,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	return i.eth.SendToSelf(frame.EtherTypeIPv4, datagram)
}

// SendICMP builds and sends an ICMP message to dst.
// Sending to self forces the message to an echo reply regardless of kind.
func (i *Interface) SendICMP(tick uint64, dst frame.IPv4Address, kind frame.ICMPType) error {
	if dst == i.ip {
		kind = frame.ICMPTypeEchoReply
	}

	pkt := frame.ICMPPacket{Type: kind}
	if kind == frame.ICMPTypeUnreachable {
		pkt.Code = frame.ICMPCodeHostUnreachable
	}

	_, err := i.Sendv(tick, i.ip, dst, nil, defaultTTL, frame.MarshalICMP(pkt), frame.ProtoICMP)
	if err != nil {
		return fmt.Errorf("ipv4 send icmp: %w", err)
	}
	return nil
}

// Multicast emits an IPv4 frame to the RIP multicast address, with the
// matching link-layer multicast destination.
func (i *Interface) Multicast(payload []byte, protocol uint8) error {
	datagram, err := frame.MarshalIPv4(frame.IPv4Frame{
		TTL:      defaultTTL,
		Protocol: protocol,
		Src:      i.ip,
		Dst:      frame.RIPMulticastIPv4,
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("ipv4 multicast: %w", err)
	}

	dstMAC := frame.MACFromIPv4Multicast(frame.RIPMulticastIPv4)
	if err := i.eth.Sendv(i.eth.MAC(), dstMAC, frame.EtherTypeIPv4, datagram); err != nil {
		return fmt.Errorf("ipv4 multicast: %w", err)
	}
	return nil
}

// DrainRaw decodes and discards whatever is waiting in the underlying
// Ethernet queue without running any IPv4 logic. A disabled router port
// still has to call this every tick so its physical port's incoming
// buffer does not grow without bound.
func (i *Interface) DrainRaw() {
	i.eth.Receive()
}

// Receive drains the Ethernet layer, processes ARP and IPv4 traffic
// (passive learning, echo reflex, proxy ARP reply), advances the ARP
// pending buffer, and returns every decoded IPv4 frame not consumed
// internally.
func (i *Interface) Receive(tick uint64) []frame.IPv4Frame {
	var out []frame.IPv4Frame

	for _, ef := range i.eth.Receive() {
		switch ef.EtherType {
		case frame.EtherTypeIPv4:
			dgram, err := frame.UnmarshalIPv4(ef.Payload)
			if err != nil {
				continue
			}
			i.learn(dgram.Src, ef.Src)

			if dgram.Dst == i.ip && dgram.Protocol == frame.ProtoICMP {
				icmp, err := frame.UnmarshalICMP(dgram.Payload)
				if err == nil && icmp.Type == frame.ICMPTypeEchoRequest && dgram.Src != i.ip {
					_ = i.SendICMP(tick, dgram.Src, frame.ICMPTypeEchoReply)
					continue
				}
			}
			out = append(out, dgram)

		case frame.EtherTypeARP:
			arp, err := frame.UnmarshalARP(ef.Payload)
			if err != nil {
				continue
			}
			i.learn(arp.SenderIP, arp.SenderMAC)

			if arp.Op == frame.ARPOpRequest {
				_, knownAsTarget := i.arpTable[arp.TargetIP]
				if arp.TargetIP == i.ip || knownAsTarget {
					_ = i.eth.ARPReply(arp.TargetIP, arp.SenderMAC, arp.SenderIP)
				}
			}
		}
	}

	i.advancePending(tick)
	return out
}

// learn records an observed IP-to-MAC binding, refusing to cache
// multicast or broadcast source addresses.
func (i *Interface) learn(ip frame.IPv4Address, mac frame.MACAddress) {
	if mac.IsMulticast() || mac.IsBroadcast() {
		return
	}
	i.arpTable[ip] = mac
}

// ARPTableLookup exposes a read-only view of the learned ARP table, for
// devices (e.g. the router) and external sniffing that need to inspect
// resolved bindings without reaching into the interface's internals.
func (i *Interface) ARPTableLookup(ip frame.IPv4Address) (frame.MACAddress, bool) {
	mac, ok := i.arpTable[ip]
	return mac, ok
}
