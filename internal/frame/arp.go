package frame

import (
	"encoding/binary"
	"fmt"
)

// ARPFrameLen is the fixed size of an Ethernet/IPv4 ARP packet:
// htype(2) + ptype(2) + hlen(1) + plen(1) + op(2) +
// sender MAC(6) + sender IP(4) + target MAC(6) + target IP(4) = 28.
const ARPFrameLen = 28

const (
	arpHTypeEthernet uint16 = 1
	arpPTypeIPv4     uint16 = 0x0800
	arpHLenEthernet  uint8  = MACAddrLen
	arpPLenIPv4      uint8  = IPv4AddrLen
)

// ARPOp is the ARP operation code.
type ARPOp uint16

const (
	// ARPOpRequest requests the hardware address for TargetIP.
	ARPOpRequest ARPOp = 1
	// ARPOpReply answers a previous request.
	ARPOpReply ARPOp = 2
)

// ARPFrame is a decoded Ethernet/IPv4 ARP packet.
type ARPFrame struct {
	Op        ARPOp
	SenderMAC MACAddress
	SenderIP  IPv4Address
	TargetMAC MACAddress
	TargetIP  IPv4Address
}

// MarshalARP encodes an ARP packet.
func MarshalARP(f ARPFrame) []byte {
	buf := make([]byte, ARPFrameLen)
	binary.BigEndian.PutUint16(buf[0:2], arpHTypeEthernet)
	binary.BigEndian.PutUint16(buf[2:4], arpPTypeIPv4)
	buf[4] = arpHLenEthernet
	buf[5] = arpPLenIPv4
	binary.BigEndian.PutUint16(buf[6:8], uint16(f.Op))
	copy(buf[8:14], f.SenderMAC[:])
	copy(buf[14:18], f.SenderIP[:])
	copy(buf[18:24], f.TargetMAC[:])
	copy(buf[24:28], f.TargetIP[:])
	return buf
}

// UnmarshalARP decodes an ARP packet. An unrecognized Op fails decode with
// ErrMalformed.
func UnmarshalARP(buf []byte) (ARPFrame, error) {
	var f ARPFrame

	if len(buf) < ARPFrameLen {
		return f, fmt.Errorf("unmarshal arp: %d bytes: %w", len(buf), ErrRunt)
	}

	op := binary.BigEndian.Uint16(buf[6:8])
	switch ARPOp(op) {
	case ARPOpRequest, ARPOpReply:
		f.Op = ARPOp(op)
	default:
		return ARPFrame{}, fmt.Errorf("unmarshal arp: op %d: %w", op, ErrMalformed)
	}

	copy(f.SenderMAC[:], buf[8:14])
	copy(f.SenderIP[:], buf[14:18])
	copy(f.TargetMAC[:], buf[18:24])
	copy(f.TargetIP[:], buf[24:28])
	return f, nil
}
