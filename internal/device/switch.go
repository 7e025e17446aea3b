package device

import (
	"fmt"

	"github.com/lp-netsim/netsim/internal/ethernet"
	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/physical"
	"github.com/lp-netsim/netsim/internal/timer"
)

// MaxSwitchPorts is the fixed number of ports every Switch owns.
const MaxSwitchPorts = 32

// Simulation timing constants, expressed in ticks at the simulator's
// nominal 30-ticks-per-second quantum.
const (
	TicksPerSecond    = 30
	rstpInitTicks     = 15 * TicksPerSecond
	rstpHelloTicks    = 2 * TicksPerSecond
	rstpMaxAgeTicks   = 6 * TicksPerSecond
	rstpForwardDelay  = 15 * TicksPerSecond
	rstpMissedHelloLimit = 3
)

// STPState is the RSTP port forwarding state.
type STPState uint8

const (
	StateDiscarding STPState = iota
	StateLearning
	StateForwarding
)

// String returns a human-readable state name.
func (s STPState) String() string {
	switch s {
	case StateDiscarding:
		return "Discarding"
	case StateLearning:
		return "Learning"
	case StateForwarding:
		return "Forwarding"
	default:
		return "Unknown"
	}
}

// switchPort is an Ethernet interface plus RSTP state.
type switchPort struct {
	eth   ethernet.Interface
	state STPState
	role  frame.PortRole

	peerRootBID     frame.BridgeID
	peerBID         frame.BridgeID
	peerRole        frame.PortRole
	rootCostThrough uint32
	hasPeerInfo     bool

	missedHellos        int
	bpduHeardThisWindow bool
}

// Switch is a 32-port learning bridge, optionally running RSTP. With
// RSTP disabled it is a plain flooding learning bridge; 802.3 frames
// are then ignored rather than decoded as BPDUs.
type Switch struct {
	ports [MaxSwitchPorts]switchPort
	table map[frame.MACAddress]int

	mac      frame.MACAddress
	priority uint16
	ownBID   frame.BridgeID

	rstpEnabled bool
	rootBID     frame.BridgeID
	rootCost    uint32
	rootPort    int // -1 if none

	wheel *timer.Wheel

	metrics MetricsSink
	name    string
}

// NewSwitch allocates a switch with MaxSwitchPorts ports bound to fresh
// ports in arena, defaulting to plain learning-bridge mode.
func NewSwitch(arena *physical.Arena, mac frame.MACAddress, priority uint16) *Switch {
	s := &Switch{
		table:    make(map[frame.MACAddress]int),
		mac:      mac,
		priority: priority,
		rootPort: -1,
		wheel:    timer.NewWheel(),
	}
	for i := range s.ports {
		s.ports[i].eth = ethernet.New(arena, mac)
		s.ports[i].role = frame.PortRoleDesignated
		s.ports[i].state = StateForwarding
	}
	return s
}

// SetMetrics attaches a telemetry sink, labeling every metric this switch
// emits with name. Passing a nil sink disables emission.
func (s *Switch) SetMetrics(name string, sink MetricsSink) {
	s.name = name
	s.metrics = sink
}

// Port returns the physical port handle for switch port idx.
func (s *Switch) Port(idx int) (physical.PortHandle, error) {
	if idx < 0 || idx >= MaxSwitchPorts {
		return 0, fmt.Errorf("switch port %d: %w", idx, ErrPortOutOfRange)
	}
	return s.ports[idx].eth.Port(), nil
}

// ConnectPort pairs switch port idx with another port handle.
func (s *Switch) ConnectPort(idx int, other physical.PortHandle) error {
	if idx < 0 || idx >= MaxSwitchPorts {
		return fmt.Errorf("switch connect port %d: %w", idx, ErrPortOutOfRange)
	}
	return s.ports[idx].eth.ConnectPort(other)
}

// DisconnectPort unpairs switch port idx.
func (s *Switch) DisconnectPort(idx int) error {
	if idx < 0 || idx >= MaxSwitchPorts {
		return fmt.Errorf("switch disconnect port %d: %w", idx, ErrPortOutOfRange)
	}
	return s.ports[idx].eth.Disconnect()
}

// PortRole returns the current RSTP role of port idx.
func (s *Switch) PortRole(idx int) frame.PortRole {
	return s.ports[idx].role
}

// PortState returns the current RSTP state of port idx.
func (s *Switch) PortState(idx int) STPState {
	return s.ports[idx].state
}

// RootBID returns the switch's currently accepted root bridge ID.
func (s *Switch) RootBID() frame.BridgeID {
	return s.rootBID
}

// BID returns the switch's own bridge ID.
func (s *Switch) BID() frame.BridgeID {
	return s.ownBID
}

// SetPriority updates the operator-configured bridge priority. If RSTP
// is already running, this immediately recomputes the bridge ID and
// advertises it; the new superiority (or lack of it) propagates on the
// next BPDU exchange exactly as a topology change would.
func (s *Switch) SetPriority(tick uint64, priority uint16) {
	s.priority = priority
	if !s.rstpEnabled {
		return
	}
	s.ownBID = frame.NewBridgeID(s.mac, s.priority)
	if s.rootPort == -1 {
		s.rootBID = s.ownBID
	}
	s.floodBPDUs()
	s.recomputeRoles()
}

// EnableRSTP switches the bridge into RSTP-active mode and runs init()
//: the switch assumes it is root, every port moves
// to Discarding with a provisional Root role, a Hello BPDU with TCN and
// proposal set floods every port, and finish_init is scheduled 15
// seconds out.
func (s *Switch) EnableRSTP(tick uint64) {
	s.rstpEnabled = true
	s.ownBID = frame.NewBridgeID(s.mac, s.priority)
	s.rootBID = s.ownBID
	s.rootCost = 0
	s.rootPort = -1

	for i := range s.ports {
		s.ports[i].state = StateDiscarding
		s.ports[i].role = frame.PortRoleRoot
		s.ports[i].hasPeerInfo = false
		s.ports[i].missedHellos = 0
		s.ports[i].bpduHeardThisWindow = false
	}

	for i := range s.ports {
		s.sendHello(i, true, true)
	}

	s.wheel.Schedule("init", tick+rstpInitTicks, 0, false)
}

// DisableRSTP reverts the bridge to plain learning-bridge mode: every
// port becomes Forwarding/Designated and no further BPDUs are sent or
// interpreted.
func (s *Switch) DisableRSTP() {
	s.rstpEnabled = false
	s.wheel.Cancel("init")
	s.wheel.Cancel("hello")
	for i := range s.ports {
		s.ports[i].state = StateForwarding
		s.ports[i].role = frame.PortRoleDesignated
	}
}

// finishInit promotes every port that never heard a peer BPDU during
// init to Designated/Forwarding (an access/edge port), then arms the
// periodic 2-second Hello timer.
func (s *Switch) finishInit(tick uint64) {
	before := s.snapshot()
	for i := range s.ports {
		if !s.ports[i].bpduHeardThisWindow {
			s.ports[i].state = StateForwarding
			s.ports[i].role = frame.PortRoleDesignated
		}
	}
	s.reportRoleChanges(before)
	s.wheel.Schedule("hello", tick+rstpHelloTicks, rstpHelloTicks, true)
}

// periodicHello runs on every Hello tick: it ages missed-hello counters
// (declaring link loss at the threshold) and re-advertises every port's
// current role.
func (s *Switch) periodicHello(tick uint64) {
	for i := range s.ports {
		p := &s.ports[i]
		if p.role == frame.PortRoleNone {
			continue
		}
		if p.bpduHeardThisWindow {
			p.missedHellos = 0
		} else if p.hasPeerInfo {
			p.missedHellos++
			if p.missedHellos >= rstpMissedHelloLimit {
				s.linkLoss(i)
			}
		}
		p.bpduHeardThisWindow = false
	}

	for i := range s.ports {
		s.sendHello(i, false, false)
	}
}

// linkLoss treats port idx as disconnected: its
// peer bookkeeping clears, it becomes Designated/Forwarding with cost
// zero, and a role recomputation follows.
func (s *Switch) linkLoss(idx int) {
	p := &s.ports[idx]
	before := s.snapshot()
	p.peerRootBID = 0
	p.peerBID = 0
	p.peerRole = frame.PortRoleNone
	p.rootCostThrough = 0
	p.hasPeerInfo = false
	p.missedHellos = 0
	p.role = frame.PortRoleDesignated
	p.state = StateForwarding
	s.reportRoleChanges(before)

	s.recomputeRoles()
}

// Tick runs one simulation step: decode and process every port's
// incoming queue (plain forwarding always; BPDU dispatch when RSTP is
// active), then advance the RSTP timer wheel.
func (s *Switch) Tick(tick uint64) {
	for idx := range s.ports {
		for _, ef := range s.ports[idx].eth.Receive() {
			if ef.Src.IsMulticast() || ef.Src.IsBroadcast() {
				continue
			}

			switch ef.Kind {
			case frame.EthernetKindII:
				s.forward(idx, ef)
			case frame.EthernetKind8023:
				if !s.rstpEnabled {
					continue
				}
				bpdu, err := frame.UnmarshalBPDU(ef.Payload)
				if err != nil {
					continue
				}
				s.handleBPDU(tick, idx, bpdu)
			}
		}
	}

	if !s.rstpEnabled {
		return
	}
	for _, key := range s.wheel.Ready(tick) {
		switch key {
		case "init":
			s.finishInit(tick)
		case "hello":
			s.periodicHello(tick)
		}
	}
	s.wheel.Advance(tick)
}

// forward implements plain learning-bridge flooding: learn the source
// on first sight, unicast if the destination is known, else flood to
// every port but the ingress and any Discarding
// port.
func (s *Switch) forward(ingress int, ef frame.EthernetFrame) {
	if _, exists := s.table[ef.Src]; !exists {
		s.table[ef.Src] = ingress
	}

	if dstPort, ok := s.table[ef.Dst]; ok {
		_ = s.ports[dstPort].eth.Sendv(ef.Src, ef.Dst, ef.EtherType, ef.Payload)
		return
	}

	for j := range s.ports {
		if j == ingress {
			continue
		}
		if s.rstpEnabled && s.ports[j].state == StateDiscarding {
			continue
		}
		_ = s.ports[j].eth.Sendv(ef.Src, ef.Dst, ef.EtherType, ef.Payload)
	}
}
