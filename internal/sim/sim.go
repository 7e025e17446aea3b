package sim

import (
	"fmt"
	"sort"

	"github.com/lp-netsim/netsim/internal/device"
	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/ipv4"
	"github.com/lp-netsim/netsim/internal/physical"
)

// DeviceKind identifies which concrete device a DeviceHandle names.
type DeviceKind uint8

const (
	KindSwitch DeviceKind = iota
	KindRouter
	KindDesktop
)

// String returns a human-readable kind name.
func (k DeviceKind) String() string {
	switch k {
	case KindSwitch:
		return "switch"
	case KindRouter:
		return "router"
	case KindDesktop:
		return "desktop"
	default:
		return "unknown"
	}
}

// DeviceHandle is a stable, opaque reference to a device registered with
// a Simulation, following the same handle-not-pointer discipline
// physical.PortHandle uses for ports.
type DeviceHandle int

// deviceEntry is the registry row for one device: exactly one of sw, rt,
// desktop is non-nil, selected by kind. metadata is opaque, GUI-only
// bookkeeping (position, label) the core stores and returns but never
// interprets.
type deviceEntry struct {
	kind    DeviceKind
	sw      *device.Switch
	rt      *device.Router
	desktop *ipv4.Interface
	meta    map[string]string

	// decoded accumulates the datagrams a desktop's per-tick Receive call
	// decodes, since Step drives that call every tick to keep ARP retry
	// and ICMP-echo reflexes running whether or not anyone ever reads the
	// result; Receive below is what actually hands them to a caller.
	decoded []frame.IPv4Frame
}

// Simulation is the library-level façade every front end drives a
// network simulation through: device creation,
// wiring, configuration, sniffing, and the tick loop.
type Simulation struct {
	arena   *physical.Arena
	devices map[DeviceHandle]*deviceEntry
	next    DeviceHandle
	tick    uint64
}

// New returns an empty simulation with its own port arena.
func New() *Simulation {
	return &Simulation{
		arena:   physical.NewArena(),
		devices: make(map[DeviceHandle]*deviceEntry),
	}
}

// Tick returns the number of ticks run so far.
func (s *Simulation) Tick() uint64 {
	return s.tick
}

func (s *Simulation) register(e *deviceEntry) DeviceHandle {
	h := s.next
	s.next++
	e.meta = make(map[string]string)
	s.devices[h] = e
	return h
}

func (s *Simulation) lookup(h DeviceHandle) (*deviceEntry, error) {
	e, ok := s.devices[h]
	if !ok {
		return nil, fmt.Errorf("device %d: %w", h, ErrDeviceNotFound)
	}
	return e, nil
}

// NewSwitch creates a 32-port learning bridge.
func (s *Simulation) NewSwitch(mac frame.MACAddress, priority uint16) DeviceHandle {
	return s.register(&deviceEntry{
		kind: KindSwitch,
		sw:   device.NewSwitch(s.arena, mac, priority),
	})
}

// NewRouter creates an 8-port router.
func (s *Simulation) NewRouter(mac frame.MACAddress) DeviceHandle {
	return s.register(&deviceEntry{
		kind: KindRouter,
		rt:   device.NewRouter(s.arena, mac),
	})
}

// NewDesktop creates a single-port IPv4 host  (the
// desktop device's UI is out of scope, the core only needs the bare
// interface and a per-tick hook that drains it).
func (s *Simulation) NewDesktop(mac frame.MACAddress, ip, mask frame.IPv4Address) DeviceHandle {
	return s.register(&deviceEntry{
		kind:    KindDesktop,
		desktop: ipv4.New(s.arena, mac, ip, mask),
	})
}

// Devices returns every live device handle in creation order.
func (s *Simulation) Devices() []DeviceHandle {
	out := make([]DeviceHandle, 0, len(s.devices))
	for h := range s.devices {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Kind returns the device kind for handle h.
func (s *Simulation) Kind(h DeviceHandle) (DeviceKind, error) {
	e, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	return e.kind, nil
}

// AttachMetrics wires a telemetry sink into a switch or router, labeling
// every metric it emits with name. Desktops have no
// RSTP/RIP telemetry of their own; use AttachDesktopMetrics for their ARP
// counters instead.
func (s *Simulation) AttachMetrics(h DeviceHandle, name string, sink device.MetricsSink) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	switch e.kind {
	case KindSwitch:
		e.sw.SetMetrics(name, sink)
	case KindRouter:
		e.rt.SetMetrics(name, sink)
	default:
		return fmt.Errorf("attach metrics: %w", ErrWrongDeviceKind)
	}
	return nil
}

// AttachDesktopMetrics wires a telemetry sink into a desktop's ARP
// pending buffer, labeling every metric it emits with name.
func (s *Simulation) AttachDesktopMetrics(h DeviceHandle, name string, sink ipv4.MetricsSink) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindDesktop {
		return fmt.Errorf("attach desktop metrics: %w", ErrWrongDeviceKind)
	}
	e.desktop.SetMetrics(name, sink)
	return nil
}

// SetMetadata stores an opaque key/value pair against a device:
// position, label, and other GUI-only fields the core never
// interprets.
func (s *Simulation) SetMetadata(h DeviceHandle, key, value string) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	e.meta[key] = value
	return nil
}

// Metadata returns the opaque metadata map stored against a device.
func (s *Simulation) Metadata(h DeviceHandle) (map[string]string, error) {
	e, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(e.meta))
	for k, v := range e.meta {
		out[k] = v
	}
	return out, nil
}

// portHandle resolves (device, port index) to the underlying physical
// port handle. A desktop has exactly one port, addressed as index 0.
func (s *Simulation) portHandle(h DeviceHandle, idx int) (physical.PortHandle, error) {
	e, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	switch e.kind {
	case KindSwitch:
		return e.sw.Port(idx)
	case KindRouter:
		return e.rt.Port(idx)
	case KindDesktop:
		if idx != 0 {
			return 0, fmt.Errorf("desktop port %d: %w", idx, ErrWrongDeviceKind)
		}
		return e.desktop.Port(), nil
	default:
		return 0, ErrWrongDeviceKind
	}
}

// Connect wires port idx1 of h1 to port idx2 of h2  (// a cable has exactly two ends; connecting an already-paired port fails).
func (s *Simulation) Connect(h1 DeviceHandle, idx1 int, h2 DeviceHandle, idx2 int) error {
	p1, err := s.portHandle(h1, idx1)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	p2, err := s.portHandle(h2, idx2)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := s.arena.Connect(p1, p2); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Disconnect unplugs port idx of h, clearing the pairing on both ends.
func (s *Simulation) Disconnect(h DeviceHandle, idx int) error {
	p, err := s.portHandle(h, idx)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if err := s.arena.Disconnect(p); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// DeleteDevice unplugs every port a device owns and removes it from the
// registry. Its peers are left unpaired, exactly as an explicit
// Disconnect of each of its ports would.
func (s *Simulation) DeleteDevice(h DeviceHandle) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}

	portCount := 0
	switch e.kind {
	case KindSwitch:
		portCount = device.MaxSwitchPorts
	case KindRouter:
		portCount = device.MaxRouterPorts
	case KindDesktop:
		portCount = 1
	}
	for idx := 0; idx < portCount; idx++ {
		_ = s.Disconnect(h, idx)
	}

	delete(s.devices, h)
	return nil
}

// ConfigureRouterPort sets a router port's address and administratively
// enables it.
func (s *Simulation) ConfigureRouterPort(h DeviceHandle, idx int, ip, mask frame.IPv4Address) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindRouter {
		return fmt.Errorf("configure router port: %w", ErrWrongDeviceKind)
	}
	return e.rt.ConfigureRouterPort(idx, ip, mask)
}

// SetRouterPortEnabled administratively enables or disables a router port.
func (s *Simulation) SetRouterPortEnabled(h DeviceHandle, idx int, enabled bool) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindRouter {
		return fmt.Errorf("set router port enabled: %w", ErrWrongDeviceKind)
	}
	return e.rt.SetPortEnabled(idx, enabled)
}

// SetRouterRIPInterval overrides a router's RIP advertisement cadence in
// ticks  (an operator-configurable cadence override on
// top of the otherwise-fixed simulator constant). Must be called before
// EnableRIP to take effect.
func (s *Simulation) SetRouterRIPInterval(h DeviceHandle, ticks uint64) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindRouter {
		return fmt.Errorf("set router rip interval: %w", ErrWrongDeviceKind)
	}
	e.rt.SetRIPInterval(ticks)
	return nil
}

// EnableRIP turns on RIP advertisement on a router port.
func (s *Simulation) EnableRIP(h DeviceHandle, idx int) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindRouter {
		return fmt.Errorf("enable rip: %w", ErrWrongDeviceKind)
	}
	return e.rt.EnableRIP(s.tick, idx)
}

// RouteTable returns a router's current routing table, for
// inspection/CLI/tests.
func (s *Simulation) RouteTable(h DeviceHandle) (map[frame.IPv4Address]device.RouteEntry, error) {
	e, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	if e.kind != KindRouter {
		return nil, fmt.Errorf("route table: %w", ErrWrongDeviceKind)
	}
	return e.rt.Table(), nil
}

// SetBridgePriority updates a switch's configured RSTP priority.
func (s *Simulation) SetBridgePriority(h DeviceHandle, priority uint16) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindSwitch {
		return fmt.Errorf("set bridge priority: %w", ErrWrongDeviceKind)
	}
	e.sw.SetPriority(s.tick, priority)
	return nil
}

// EnableRSTP switches a bridge into RSTP-active mode. Plain
// flooding-bridge mode is the default a Switch is created in; this is
// an explicit operator opt-in, not automatic.
func (s *Simulation) EnableRSTP(h DeviceHandle) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindSwitch {
		return fmt.Errorf("enable rstp: %w", ErrWrongDeviceKind)
	}
	e.sw.EnableRSTP(s.tick)
	return nil
}

// DisableRSTP reverts a bridge to plain learning-bridge mode.
func (s *Simulation) DisableRSTP(h DeviceHandle) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindSwitch {
		return fmt.Errorf("disable rstp: %w", ErrWrongDeviceKind)
	}
	e.sw.DisableRSTP()
	return nil
}

// SetInterfaceAddress reassigns a desktop's IP address and subnet mask.
func (s *Simulation) SetInterfaceAddress(h DeviceHandle, ip, mask frame.IPv4Address) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindDesktop {
		return fmt.Errorf("set interface address: %w", ErrWrongDeviceKind)
	}
	e.desktop.SetAddress(ip, mask)
	return nil
}

// SetGateway sets or clears a desktop's default gateway.
func (s *Simulation) SetGateway(h DeviceHandle, gw *frame.IPv4Address) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	if e.kind != KindDesktop {
		return fmt.Errorf("set gateway: %w", ErrWrongDeviceKind)
	}
	e.desktop.SetGateway(gw)
	return nil
}

// Send queues an IPv4 datagram for transmission from a desktop.
func (s *Simulation) Send(h DeviceHandle, dst frame.IPv4Address, payload []byte, protocol uint8) (ipv4.SendOutcome, error) {
	e, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	if e.kind != KindDesktop {
		return 0, fmt.Errorf("send: %w", ErrWrongDeviceKind)
	}
	return e.desktop.Send(s.tick, dst, payload, protocol)
}

// Receive drains and returns every datagram a desktop has decoded since
// its last drain. Decoding itself happens once per tick inside Step, so
// that ARP-reply and ICMP-echo reflexes and ARP retry bookkeeping keep
// running whether or not a caller ever reads the result; Receive only
// hands over what has piled up since the last call.
func (s *Simulation) Receive(h DeviceHandle) ([]frame.IPv4Frame, error) {
	e, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	if e.kind != KindDesktop {
		return nil, fmt.Errorf("receive: %w", ErrWrongDeviceKind)
	}
	out := e.decoded
	e.decoded = nil
	return out, nil
}

// SniffPort returns the raw, still-queued frames on a port's incoming
// and outgoing buffers without draining either.
func (s *Simulation) SniffPort(h DeviceHandle, idx int) (incoming, outgoing [][]byte, err error) {
	p, err := s.portHandle(h, idx)
	if err != nil {
		return nil, nil, fmt.Errorf("sniff port: %w", err)
	}
	incoming, err = s.arena.PeekIncoming(p)
	if err != nil {
		return nil, nil, fmt.Errorf("sniff port: %w", err)
	}
	outgoing, err = s.arena.PeekOutgoing(p)
	if err != nil {
		return nil, nil, fmt.Errorf("sniff port: %w", err)
	}
	return incoming, outgoing, nil
}

// Step runs a single simulation tick: every device
// processes its incoming queue first, in handle order for determinism,
// then the cable simulator drains every outgoing queue into its peer's
// incoming queue; a frame sent during this tick becomes visible to its
// peer on the next one.
func (s *Simulation) Step() {
	for _, h := range s.Devices() {
		e := s.devices[h]
		switch e.kind {
		case KindSwitch:
			e.sw.Tick(s.tick)
		case KindRouter:
			e.rt.Route(s.tick)
		case KindDesktop:
			e.decoded = append(e.decoded, e.desktop.Receive(s.tick)...)
		}
	}
	s.arena.Transmit()
	s.tick++
}

// Run advances the simulation by n ticks.
func (s *Simulation) Run(n uint64) {
	for i := uint64(0); i < n; i++ {
		s.Step()
	}
}
