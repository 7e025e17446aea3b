package frame

import (
	"encoding/binary"
	"fmt"
)

// BPDULen is the fixed size of an RSTP BPDU payload (carried inside an
// 802.3 LLC frame):
// protocol id(2) + version(1) + bpdu type(1) + flags(1) + root BID(8) +
// root path cost(4) + sender BID(8) + port id(2) + message age(2) +
// max age(2) + hello time(2) + forward delay(2) = 35.
const BPDULen = 35

// RSTPProtocolID and RSTPVersion are the fixed protocol identification
// fields for the RSTP BPDU variant.
const (
	RSTPProtocolID uint16 = 0
	RSTPVersion    uint8  = 2
	RSTPBPDUType   uint8  = 2
)

// BPDU flag bit positions.
const (
	bpduFlagTCN        = 1 << 0
	bpduFlagProposal   = 1 << 1
	bpduFlagRoleShift  = 2
	bpduFlagRoleMask   = 0x03 << bpduFlagRoleShift
	bpduFlagLearning   = 1 << 4
	bpduFlagForwarding = 1 << 5
	bpduFlagAgreement  = 1 << 6
)

// PortRole is the RSTP port role.
type PortRole uint8

const (
	PortRoleRoot PortRole = iota
	PortRoleDesignated
	PortRoleAlternate
	PortRoleBackup
	// PortRoleNone is informational only; it is never transmitted on the
	// wire.
	PortRoleNone
)

// String returns a human-readable port role name.
func (r PortRole) String() string {
	switch r {
	case PortRoleRoot:
		return "Root"
	case PortRoleDesignated:
		return "Designated"
	case PortRoleAlternate:
		return "Alternate"
	case PortRoleBackup:
		return "Backup"
	default:
		return unknownStr
	}
}

// BPDU is a decoded RSTP bridge protocol data unit.
type BPDU struct {
	TCN            bool
	Proposal       bool
	Role           PortRole
	Learning       bool
	Forwarding     bool
	Agreement      bool
	RootBID        BridgeID
	RootPathCost   uint32
	SenderBID      BridgeID
	PortID         uint16
	MessageAge     uint16
	MaxAge         uint16
	HelloTime      uint16
	ForwardDelay   uint16
}

// MarshalBPDU encodes a BPDU payload. PortRoleNone is never emitted
//; callers must resolve a concrete role first.
func MarshalBPDU(b BPDU) ([]byte, error) {
	if b.Role == PortRoleNone {
		return nil, fmt.Errorf("marshal bpdu: role None: %w", ErrMalformed)
	}

	buf := make([]byte, BPDULen)
	binary.BigEndian.PutUint16(buf[0:2], RSTPProtocolID)
	buf[2] = RSTPVersion
	buf[3] = RSTPBPDUType

	var flags uint8
	if b.TCN {
		flags |= bpduFlagTCN
	}
	if b.Proposal {
		flags |= bpduFlagProposal
	}
	flags |= uint8(b.Role) << bpduFlagRoleShift & bpduFlagRoleMask
	if b.Learning {
		flags |= bpduFlagLearning
	}
	if b.Forwarding {
		flags |= bpduFlagForwarding
	}
	if b.Agreement {
		flags |= bpduFlagAgreement
	}
	buf[4] = flags

	binary.BigEndian.PutUint64(buf[5:13], uint64(b.RootBID))
	binary.BigEndian.PutUint32(buf[13:17], b.RootPathCost)
	binary.BigEndian.PutUint64(buf[17:25], uint64(b.SenderBID))
	binary.BigEndian.PutUint16(buf[25:27], b.PortID)
	binary.BigEndian.PutUint16(buf[27:29], b.MessageAge)
	binary.BigEndian.PutUint16(buf[29:31], b.MaxAge)
	binary.BigEndian.PutUint16(buf[31:33], b.HelloTime)
	binary.BigEndian.PutUint16(buf[33:35], b.ForwardDelay)

	return buf, nil
}

// UnmarshalBPDU decodes a BPDU payload. The protocol id, version and type
// fields are not checked. The role field is two bits wide, so it always
// decodes to one of the four concrete roles; PortRoleNone never comes off
// the wire.
func UnmarshalBPDU(buf []byte) (BPDU, error) {
	var b BPDU

	if len(buf) < BPDULen {
		return b, fmt.Errorf("unmarshal bpdu: %d bytes: %w", len(buf), ErrRunt)
	}

	flags := buf[4]
	b.TCN = flags&bpduFlagTCN != 0
	b.Proposal = flags&bpduFlagProposal != 0
	b.Role = PortRole((flags & bpduFlagRoleMask) >> bpduFlagRoleShift)
	b.Learning = flags&bpduFlagLearning != 0
	b.Forwarding = flags&bpduFlagForwarding != 0
	b.Agreement = flags&bpduFlagAgreement != 0

	b.RootBID = BridgeID(binary.BigEndian.Uint64(buf[5:13]))
	b.RootPathCost = binary.BigEndian.Uint32(buf[13:17])
	b.SenderBID = BridgeID(binary.BigEndian.Uint64(buf[17:25]))
	b.PortID = binary.BigEndian.Uint16(buf[25:27])
	b.MessageAge = binary.BigEndian.Uint16(buf[27:29])
	b.MaxAge = binary.BigEndian.Uint16(buf[29:31])
	b.HelloTime = binary.BigEndian.Uint16(buf[31:33])
	b.ForwardDelay = binary.BigEndian.Uint16(buf[33:35])

	return b, nil
}
