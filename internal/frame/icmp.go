package frame

import (
	"encoding/binary"
	"fmt"
)

// ICMPHeaderLen is the fixed ICMP header size used by this simulator:
// type(1) + code(1) + checksum(2) + identifier(2) + sequence(2).
const ICMPHeaderLen = 8

// ICMPType identifies the ICMP message kind.
type ICMPType uint8

const (
	ICMPTypeEchoReply   ICMPType = 0
	ICMPTypeUnreachable ICMPType = 3
	ICMPTypeEchoRequest ICMPType = 8
)

// ICMPCode holds the code for ICMPTypeUnreachable; the simulator only ever
// emits host-unreachable.
const ICMPCodeHostUnreachable uint8 = 1

// ICMPPacket is a decoded ICMP message.
type ICMPPacket struct {
	Type       ICMPType
	Code       uint8
	Checksum   uint16
	Identifier uint16
	Sequence   uint16
	Data       []byte
}

// MarshalICMP encodes an ICMP message. The checksum is emitted as zero;
// this simulator never validates it.
func MarshalICMP(p ICMPPacket) []byte {
	buf := make([]byte, ICMPHeaderLen+len(p.Data))
	buf[0] = uint8(p.Type)
	buf[1] = p.Code
	binary.BigEndian.PutUint16(buf[2:4], 0)
	binary.BigEndian.PutUint16(buf[4:6], p.Identifier)
	binary.BigEndian.PutUint16(buf[6:8], p.Sequence)
	copy(buf[8:], p.Data)
	return buf
}

// UnmarshalICMP decodes an ICMP message.
func UnmarshalICMP(buf []byte) (ICMPPacket, error) {
	var p ICMPPacket

	if len(buf) < ICMPHeaderLen {
		return p, fmt.Errorf("unmarshal icmp: %d bytes: %w", len(buf), ErrRunt)
	}

	p.Type = ICMPType(buf[0])
	p.Code = buf[1]
	p.Checksum = binary.BigEndian.Uint16(buf[2:4])
	p.Identifier = binary.BigEndian.Uint16(buf[4:6])
	p.Sequence = binary.BigEndian.Uint16(buf[6:8])
	if len(buf) > ICMPHeaderLen {
		p.Data = buf[ICMPHeaderLen:]
	}

	switch p.Type {
	case ICMPTypeEchoReply, ICMPTypeUnreachable, ICMPTypeEchoRequest:
	default:
		return ICMPPacket{}, fmt.Errorf("unmarshal icmp: type %d: %w", p.Type, ErrMalformed)
	}

	return p, nil
}
