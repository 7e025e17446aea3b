package device

import (
	"fmt"

	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/ipv4"
	"github.com/lp-netsim/netsim/internal/physical"
	"github.com/lp-netsim/netsim/internal/timer"
)

// MaxRouterPorts is the fixed number of ports every Router owns.
const MaxRouterPorts = 8

// ripIntervalTicks is the RIP emission cadence: 5 seconds.
const ripIntervalTicks = 5 * TicksPerSecond

// route is one routing table entry, keyed externally by Network.
// nextHop is nil for a directly
// connected network (the destination itself is on-link on Port); for a
// RIP-learned network it holds the address forwarding should resolve
// ARP against, which this simulator takes to be the advertising frame's
// own source address rather than trusting a NextHop field in the route
// record.
type route struct {
	network frame.IPv4Address
	mask    frame.IPv4Address
	nextHop *frame.IPv4Address
	metric  uint32
	port    int
}

// routerPort is an IPv4 interface plus administrative and RIP-enabled
// flags.
type routerPort struct {
	iface      *ipv4.Interface
	enabled    bool
	ripEnabled bool
}

// Router is an 8-port layer-3 forwarder with longest-prefix lookup, RIP
// route learning/advertisement, TTL decrement, and ICMP Destination
// Unreachable on a forwarding miss.
type Router struct {
	ports [MaxRouterPorts]routerPort
	table map[frame.IPv4Address]route

	mac         frame.MACAddress
	wheel       *timer.Wheel
	ripInterval uint64

	metrics MetricsSink
	name    string
}

// SetMetrics attaches a telemetry sink, labeling every metric this
// router emits with name. Passing a nil sink disables emission.
func (r *Router) SetMetrics(name string, sink MetricsSink) {
	r.name = name
	r.metrics = sink
}

// SetRIPInterval overrides this router's RIP advertisement cadence in
// ticks. Must be called before EnableRIP; it has no effect on an
// already-armed wheel entry. Passing 0 restores the package default.
func (r *Router) SetRIPInterval(ticks uint64) {
	r.ripInterval = ticks
}

// effectiveRIPInterval returns the router's configured advertisement cadence, or
// the simulator default if none was set.
func (r *Router) effectiveRIPInterval() uint64 {
	if r.ripInterval == 0 {
		return ripIntervalTicks
	}
	return r.ripInterval
}

// NewRouter allocates a router with MaxRouterPorts ports, each bound to
// a fresh port in arena and administratively disabled until configured.
func NewRouter(arena *physical.Arena, mac frame.MACAddress) *Router {
	r := &Router{
		table: make(map[frame.IPv4Address]route),
		mac:   mac,
		wheel: timer.NewWheel(),
	}
	for i := range r.ports {
		r.ports[i].iface = ipv4.NewRouterInterface(arena, mac, frame.IPv4Address{}, frame.IPv4Address{})
	}
	return r
}

// Port returns the physical port handle for router port idx.
func (r *Router) Port(idx int) (physical.PortHandle, error) {
	if idx < 0 || idx >= MaxRouterPorts {
		return 0, fmt.Errorf("router port %d: %w", idx, ErrPortOutOfRange)
	}
	return r.ports[idx].iface.Port(), nil
}

// ConnectPort pairs router port idx with another port handle.
func (r *Router) ConnectPort(idx int, other physical.PortHandle) error {
	if idx < 0 || idx >= MaxRouterPorts {
		return fmt.Errorf("router connect port %d: %w", idx, ErrPortOutOfRange)
	}
	return r.ports[idx].iface.ConnectPort(other)
}

// DisconnectPort unpairs router port idx.
func (r *Router) DisconnectPort(idx int) error {
	if idx < 0 || idx >= MaxRouterPorts {
		return fmt.Errorf("router disconnect port %d: %w", idx, ErrPortOutOfRange)
	}
	return r.ports[idx].iface.Disconnect()
}

// ConfigureRouterPort sets a port's address and marks it administratively
// enabled.
func (r *Router) ConfigureRouterPort(idx int, ip, mask frame.IPv4Address) error {
	if idx < 0 || idx >= MaxRouterPorts {
		return fmt.Errorf("configure router port %d: %w", idx, ErrPortOutOfRange)
	}
	r.ports[idx].iface.SetAddress(ip, mask)
	r.ports[idx].enabled = true

	network := ip.Network(mask)
	r.table[network] = route{network: network, mask: mask, metric: 0, port: idx}
	return nil
}

// Table returns a snapshot of the current routing table, keyed by
// network, for sniffing and tests.
func (r *Router) Table() map[frame.IPv4Address]RouteEntry {
	out := make(map[frame.IPv4Address]RouteEntry, len(r.table))
	for k, rt := range r.table {
		out[k] = RouteEntry{Network: rt.network, Mask: rt.mask, Metric: rt.metric, Port: rt.port}
	}
	return out
}

// RouteEntry is a read-only view of one routing table row.
type RouteEntry struct {
	Network frame.IPv4Address
	Mask    frame.IPv4Address
	Metric  uint32
	Port    int
}

// SetPortEnabled administratively enables or disables port idx.
func (r *Router) SetPortEnabled(idx int, enabled bool) error {
	if idx < 0 || idx >= MaxRouterPorts {
		return fmt.Errorf("set router port %d enabled: %w", idx, ErrPortOutOfRange)
	}
	r.ports[idx].enabled = enabled
	return nil
}

// EnableRIP turns on RIP advertisement for port idx and immediately
// emits the current table once: first emission occurs immediately on
// enable, with periodic emission afterward.
func (r *Router) EnableRIP(tick uint64, idx int) error {
	if idx < 0 || idx >= MaxRouterPorts {
		return fmt.Errorf("enable rip on port %d: %w", idx, ErrPortOutOfRange)
	}
	if !r.ports[idx].enabled {
		return fmt.Errorf("enable rip on port %d: %w", idx, ErrPortDisabled)
	}
	r.ports[idx].ripEnabled = true
	r.emitRIPOnPort(idx)
	if !r.wheel.Scheduled("rip") {
		interval := r.effectiveRIPInterval()
		r.wheel.Schedule("rip", tick+interval, interval, true)
	}
	return nil
}

// Interface returns the IPv4 interface bound to port idx, for address
// inspection or test setup.
func (r *Router) Interface(idx int) *ipv4.Interface {
	return r.ports[idx].iface
}

// Route runs one simulation step: every enabled
// port processes inbound IPv4 traffic (RIP ingestion, longest-prefix
// forwarding with TTL decrement, ICMP Unreachable on a miss); every
// disabled port still drains its raw Ethernet queue. RIP is advertised
// on its own interval afterward.
func (r *Router) Route(tick uint64) {
	for idx := range r.ports {
		p := &r.ports[idx]
		if !p.enabled {
			p.iface.DrainRaw()
			continue
		}

		for _, dgram := range p.iface.Receive(tick) {
			if (dgram.Dst.IsMulticast() || dgram.Dst.IsGlobalBroadcast()) && dgram.Protocol == frame.ProtoRIP {
				r.ingestRIP(idx, dgram)
				continue
			}
			r.forward(tick, idx, dgram)
		}
	}

	for _, key := range r.wheel.Ready(tick) {
		if key == "rip" {
			r.emitRIPAll()
		}
	}
	r.wheel.Advance(tick)
}

// forward performs the longest-prefix lookup and either forwards with a
// decremented TTL or emits ICMP Destination Unreachable back to the
// ingress interface.
func (r *Router) forward(tick uint64, ingress int, dgram frame.IPv4Frame) {
	rt, ok := r.lookup(dgram.Dst)
	if !ok {
		if r.metrics != nil {
			r.metrics.IncForwardingMisses(r.name)
		}
		_ = r.ports[ingress].iface.SendICMP(tick, dgram.Src, frame.ICMPTypeUnreachable)
		return
	}

	if dgram.TTL == 0 {
		return
	}

	egress := &r.ports[rt.port]
	_, _ = egress.iface.Sendv(tick, dgram.Src, dgram.Dst, rt.nextHop, dgram.TTL-1, dgram.Payload, dgram.Protocol)
}

// lookup performs the longest-prefix linear scan:
// among every route whose network matches frame.Dst under its mask, the
// one with the most one-bits in its mask wins.
func (r *Router) lookup(dst frame.IPv4Address) (route, bool) {
	best, found := route{}, false
	bestOnes := -1

	for _, rt := range r.table {
		if dst.Network(rt.mask) != rt.network {
			continue
		}
		ones := rt.mask.MaskOnesCount()
		if !found || ones > bestOnes {
			best, found, bestOnes = rt, true, ones
		}
	}
	return best, found
}
