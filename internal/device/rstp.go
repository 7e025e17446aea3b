package device

import (
	"strconv"

	"github.com/lp-netsim/netsim/internal/frame"
)

// sendHello builds and transmits a BPDU on port idx reflecting its
// current role and state. A port whose role is None never transmits
//; MarshalBPDU enforces this and sendHello treats
// that as a normal no-op rather than an error.
func (s *Switch) sendHello(idx int, tcn, proposal bool) {
	p := &s.ports[idx]
	bpdu := frame.BPDU{
		TCN:          tcn,
		Proposal:     proposal,
		Role:         p.role,
		Learning:     p.state != StateDiscarding,
		Forwarding:   p.state == StateForwarding,
		RootBID:      s.rootBID,
		RootPathCost: s.rootCost,
		SenderBID:    s.ownBID,
		PortID:       uint16(idx),
		MaxAge:       rstpMaxAgeTicks,
		HelloTime:    rstpHelloTicks,
		ForwardDelay: rstpForwardDelay,
	}
	buf, err := frame.MarshalBPDU(bpdu)
	if err != nil {
		return
	}
	_ = p.eth.Send8023(frame.BPDUGroupMAC, buf)
}

// floodBPDUs re-advertises the current bridge state on every port.
func (s *Switch) floodBPDUs() {
	for i := range s.ports {
		s.sendHello(i, false, false)
	}
}

// targetedBPDUs re-advertises the current bridge state on every port
// that has exchanged at least one BPDU with a peer.
func (s *Switch) targetedBPDUs() {
	for i := range s.ports {
		if s.ports[i].hasPeerInfo {
			s.sendHello(i, false, false)
		}
	}
}

// isRoot reports whether this switch currently believes itself to be
// the spanning tree root.
func (s *Switch) isRoot() bool {
	return s.rootBID == s.ownBID
}

// handleBPDU processes a received BPDU on port idx: update peer
// bookkeeping, compare root bridge IDs, and recompute
// port roles when the comparison or the recomputation changes anything.
func (s *Switch) handleBPDU(tick uint64, idx int, bpdu frame.BPDU) {
	p := &s.ports[idx]
	p.bpduHeardThisWindow = true
	p.missedHellos = 0
	p.peerRootBID = bpdu.RootBID
	p.peerBID = bpdu.SenderBID
	p.peerRole = bpdu.Role
	p.rootCostThrough = bpdu.RootPathCost + 1
	p.hasPeerInfo = true

	if s.rootBID.Better(bpdu.RootBID) {
		s.sendHello(idx, false, false)
		if s.isRoot() {
			before := s.snapshot()
			p.role = frame.PortRoleDesignated
			p.state = StateForwarding
			s.reportRoleChanges(before)
		}
		return
	}

	rootChanged := false
	if bpdu.RootBID.Better(s.rootBID) {
		s.rootBID = bpdu.RootBID
		rootChanged = true
	}

	changed := s.recomputeRoles()

	switch {
	case rootChanged:
		s.floodBPDUs()
	case changed:
		s.targetedBPDUs()
	}
}

// recomputeRoles re-derives every port's role and state from the
// current root bridge ID and the peer bookkeeping gathered from BPDUs.
// It returns whether anything changed.
func (s *Switch) recomputeRoles() bool {
	before := s.snapshot()

	if s.isRoot() {
		s.rootCost = 0
		s.rootPort = -1
		return s.reportRoleChanges(before)
	}

	newRoot, found := s.findRootPort()
	if !found {
		// No port leads toward the accepted root BID: elect ourselves.
		s.rootBID = s.ownBID
		s.rootCost = 0
		s.rootPort = -1
		for i := range s.ports {
			s.ports[i].role = frame.PortRoleDesignated
			s.ports[i].state = StateForwarding
		}
		return s.reportRoleChanges(before)
	}

	s.rootPort = newRoot
	s.rootCost = s.ports[newRoot].rootCostThrough
	s.ports[newRoot].role = frame.PortRoleRoot
	s.ports[newRoot].state = StateForwarding

	for i := range s.ports {
		if i == newRoot {
			continue
		}
		s.recomputeNonRootPort(i)
	}

	return s.reportRoleChanges(before)
}

// reportRoleChanges diffs before against the switch's current role
// snapshot, emitting one metric per port whose role changed, and
// returns whether anything changed at all.
func (s *Switch) reportRoleChanges(before roleSnapshot) bool {
	after := s.snapshot()
	if before == after {
		return false
	}
	if s.metrics != nil {
		for i := range s.ports {
			if before[i][0] == after[i][0] {
				continue
			}
			from := frame.PortRole(before[i][0])
			to := frame.PortRole(after[i][0])
			s.metrics.RecordRoleTransition(s.name, strconv.Itoa(i), from.String(), to.String())
		}
	}
	return true
}

// findRootPort picks the port whose peer root BID matches the accepted
// root BID, minimizing cost through it; ties break by better peer BID,
// then by higher port index.
func (s *Switch) findRootPort() (int, bool) {
	best := -1
	for i := range s.ports {
		p := &s.ports[i]
		if !p.hasPeerInfo || p.peerRootBID != s.rootBID {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := &s.ports[best]
		switch {
		case p.rootCostThrough < b.rootCostThrough:
			best = i
		case p.rootCostThrough == b.rootCostThrough && p.peerBID.Better(b.peerBID):
			best = i
		case p.rootCostThrough == b.rootCostThrough && p.peerBID == b.peerBID && i > best:
			best = i
		}
	}
	return best, best != -1
}

// recomputeNonRootPort assigns the Designated/Alternate/Backup role to
// one non-root port, choosing the per-segment designated candidate
// among our own ports that share the same peer bridge ID.
func (s *Switch) recomputeNonRootPort(idx int) {
	p := &s.ports[idx]
	if !p.hasPeerInfo {
		return
	}

	if !s.isSegmentDesignated(idx) {
		if p.peerRootBID == s.rootBID {
			p.role = frame.PortRoleAlternate
		} else {
			p.role = frame.PortRoleBackup
		}
		p.state = StateDiscarding
		return
	}

	switch p.peerRole {
	case frame.PortRoleRoot:
		// Never block a peer that advertises Root on its side.
		p.role = frame.PortRoleDesignated
		p.state = StateForwarding
	case frame.PortRoleDesignated:
		if s.ownBID.Better(p.peerBID) {
			p.role = frame.PortRoleDesignated
			p.state = StateForwarding
		} else {
			p.role = frame.PortRoleBackup
			p.state = StateDiscarding
		}
	default:
		p.role = frame.PortRoleDesignated
		p.state = StateForwarding
	}
}

// isSegmentDesignated reports whether port idx is the lowest-cost
// candidate among our own ports sharing the same peer bridge ID.
func (s *Switch) isSegmentDesignated(idx int) bool {
	p := &s.ports[idx]
	for j := range s.ports {
		if j == idx || j == s.rootPort {
			continue
		}
		q := &s.ports[j]
		if !q.hasPeerInfo || q.peerBID != p.peerBID {
			continue
		}
		switch {
		case q.rootCostThrough < p.rootCostThrough:
			return false
		case q.rootCostThrough == p.rootCostThrough && q.peerBID.Better(p.peerBID):
			return false
		case q.rootCostThrough == p.rootCostThrough && q.peerBID == p.peerBID && j > idx:
			return false
		}
	}
	return true
}

// roleSnapshot captures every port's role and state for change
// detection around a recomputation pass.
type roleSnapshot [MaxSwitchPorts][2]uint8

func (s *Switch) snapshot() roleSnapshot {
	var snap roleSnapshot
	for i := range s.ports {
		snap[i][0] = uint8(s.ports[i].role)
		snap[i][1] = uint8(s.ports[i].state)
	}
	return snap
}
