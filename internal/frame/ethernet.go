package frame

import (
	"encoding/binary"
	"fmt"
)

// Ethertype/length cutoff: values >= 0x0600 identify
// an Ethernet II frame via its EtherType field; values below identify an
// 802.3 LLC frame via its Length field.
const EthertypeCutoff = 0x0600

// Well-known EtherType values.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
)

// EthernetMinFrame and EthernetMaxFrame bound the on-wire size (dst+src+
// type/len+payload+FCS), excluding the physical-layer preamble and SFD
// which this simulator never stores in port buffers  (// preamble/line-coding is out of scope).
const (
	EthernetHeaderLen = 2*MACAddrLen + 2 // dst + src + ethertype/length
	EthernetFCSLen    = 4
	EthernetMinFrame  = 64
	EthernetMaxFrame  = 1518
	llcHeaderLen      = 3 // DSAP + SSAP + control
)

// LLC DSAP/SSAP/control values used for STP BPDUs.
const (
	LLCDsapStp    = 0x42
	LLCSsapStp    = 0x42
	LLCControlStp = 0x03
)

// EthernetKind distinguishes the two Ethernet variants this simulator
// understands.
type EthernetKind uint8

const (
	// EthernetKindII is an Ethernet II frame (EtherType field >= 0x0600).
	EthernetKindII EthernetKind = iota + 1
	// EthernetKind8023 is an 802.3 LLC frame (Length field < 0x0600).
	EthernetKind8023
)

// String returns a human-readable name for the kind.
func (k EthernetKind) String() string {
	switch k {
	case EthernetKindII:
		return "EthernetII"
	case EthernetKind8023:
		return "802.3"
	default:
		return unknownStr
	}
}

// EthernetFrame is the decoded tagged union of the two Ethernet variants.
type EthernetFrame struct {
	Kind EthernetKind
	Dst  MACAddress
	Src  MACAddress

	// EtherType is populated when Kind == EthernetKindII.
	EtherType uint16

	// Length is the 802.3 length field, populated when Kind == EthernetKind8023.
	Length uint16
	// DSAP, SSAP, Control are the LLC header fields, populated when
	// Kind == EthernetKind8023.
	DSAP, SSAP, Control byte

	Payload []byte
}

// KnownEtherType reports whether EtherType names a protocol this simulator
// decodes further (IPv4 or ARP). Unknown EtherTypes are not a decode
// error -- callers treat them as opaque/Debug and
// drop them without logging a malformed-frame error.
func (f EthernetFrame) KnownEtherType() bool {
	return f.EtherType == EtherTypeIPv4 || f.EtherType == EtherTypeARP
}

// MarshalEthernetII encodes an Ethernet II frame. payload must be between
// 46 and 1500 bytes; the caller pads short payloads.
func MarshalEthernetII(dst, src MACAddress, ethertype uint16, payload []byte) ([]byte, error) {
	if len(payload) < EthernetMinFrame-EthernetHeaderLen-EthernetFCSLen {
		return nil, fmt.Errorf("marshal ethernet ii: payload %d bytes: %w", len(payload), ErrRunt)
	}
	if len(payload) > 1500 {
		return nil, fmt.Errorf("marshal ethernet ii: payload %d bytes: %w", len(payload), ErrGiant)
	}

	buf := make([]byte, EthernetHeaderLen+len(payload)+EthernetFCSLen)
	copy(buf[0:6], dst[:])
	copy(buf[6:12], src[:])
	binary.BigEndian.PutUint16(buf[12:14], ethertype)
	copy(buf[14:], payload)
	// Trailing 4 bytes are the FCS, left zero  (accepted
	// as zero on ingress, emitted as zero on egress).
	return buf, nil
}

// MarshalEthernet8023 encodes an 802.3 LLC frame.
func MarshalEthernet8023(dst, src MACAddress, dsap, ssap, control byte, payload []byte) ([]byte, error) {
	length := llcHeaderLen + len(payload)
	if EthernetHeaderLen+length+EthernetFCSLen < EthernetMinFrame {
		return nil, fmt.Errorf("marshal 802.3: payload %d bytes: %w", len(payload), ErrRunt)
	}
	if length >= EthertypeCutoff {
		return nil, fmt.Errorf("marshal 802.3: length field %d overlaps ethertype range: %w", length, ErrGiant)
	}

	buf := make([]byte, EthernetHeaderLen+length+EthernetFCSLen)
	copy(buf[0:6], dst[:])
	copy(buf[6:12], src[:])
	binary.BigEndian.PutUint16(buf[12:14], uint16(length))
	buf[14] = dsap
	buf[15] = ssap
	buf[16] = control
	copy(buf[17:], payload)
	return buf, nil
}

// UnmarshalEthernet decodes an Ethernet frame, dispatching on the
// type/length field cutoff. buf must be the
// MAC-layer frame (no preamble/SFD).
func UnmarshalEthernet(buf []byte) (EthernetFrame, error) {
	var f EthernetFrame

	if len(buf) < EthernetMinFrame {
		return f, fmt.Errorf("unmarshal ethernet: %d bytes: %w", len(buf), ErrRunt)
	}
	if len(buf) > EthernetMaxFrame {
		return f, fmt.Errorf("unmarshal ethernet: %d bytes: %w", len(buf), ErrGiant)
	}

	copy(f.Dst[:], buf[0:6])
	copy(f.Src[:], buf[6:12])
	typeOrLen := binary.BigEndian.Uint16(buf[12:14])

	if typeOrLen >= EthertypeCutoff {
		f.Kind = EthernetKindII
		f.EtherType = typeOrLen
		f.Payload = buf[14 : len(buf)-EthernetFCSLen]
		return f, nil
	}

	f.Kind = EthernetKind8023
	f.Length = typeOrLen
	if len(buf) < EthernetHeaderLen+llcHeaderLen+EthernetFCSLen {
		return EthernetFrame{}, fmt.Errorf("unmarshal 802.3: %d bytes: %w", len(buf), ErrRunt)
	}
	f.DSAP = buf[14]
	f.SSAP = buf[15]
	f.Control = buf[16]
	f.Payload = buf[17 : len(buf)-EthernetFCSLen]
	return f, nil
}
