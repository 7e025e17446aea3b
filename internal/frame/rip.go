package frame

import (
	"encoding/binary"
	"fmt"
)

// RIPRouteRecordLen is the size of one RIP route record: address
// family(2) + route tag(2) + ip(4) + mask(4) + next hop(4) + metric(4).
const RIPRouteRecordLen = 20

// RIPHeaderLen is the size of the RIP command/version header.
const RIPHeaderLen = 2

// ripAddressFamilyIP is the RIPv2 address family identifier for IP.
const ripAddressFamilyIP uint16 = 2

// RIPCommand identifies whether a RIP message requests or advertises
// routes.
type RIPCommand uint8

const (
	RIPCommandRequest  RIPCommand = 1
	RIPCommandResponse RIPCommand = 2
)

// RIPVersion is the only version this simulator speaks.
const RIPVersion uint8 = 2

// RIPRoute is one advertised route record.
type RIPRoute struct {
	IP      IPv4Address
	Mask    IPv4Address
	NextHop IPv4Address
	Metric  uint32
}

// RIPMessage is a decoded RIP carrier payload.
type RIPMessage struct {
	Command RIPCommand
	Version uint8
	Routes  []RIPRoute
}

// MarshalRIP encodes a RIP message.
func MarshalRIP(m RIPMessage) []byte {
	buf := make([]byte, RIPHeaderLen+len(m.Routes)*RIPRouteRecordLen)
	buf[0] = uint8(m.Command)
	buf[1] = m.Version

	for i, r := range m.Routes {
		off := RIPHeaderLen + i*RIPRouteRecordLen
		rec := buf[off : off+RIPRouteRecordLen]
		binary.BigEndian.PutUint16(rec[0:2], ripAddressFamilyIP)
		binary.BigEndian.PutUint16(rec[2:4], 0) // route tag, always zero
		copy(rec[4:8], r.IP[:])
		copy(rec[8:12], r.Mask[:])
		copy(rec[12:16], r.NextHop[:])
		binary.BigEndian.PutUint32(rec[16:20], r.Metric)
	}

	return buf
}

// UnmarshalRIP decodes a RIP message. An unrecognized command fails decode
// with ErrMalformed.
func UnmarshalRIP(buf []byte) (RIPMessage, error) {
	var m RIPMessage

	if len(buf) < RIPHeaderLen {
		return m, fmt.Errorf("unmarshal rip: %d bytes: %w", len(buf), ErrRunt)
	}

	cmd := RIPCommand(buf[0])
	switch cmd {
	case RIPCommandRequest, RIPCommandResponse:
		m.Command = cmd
	default:
		return RIPMessage{}, fmt.Errorf("unmarshal rip: command %d: %w", buf[0], ErrMalformed)
	}
	m.Version = buf[1]

	rest := buf[RIPHeaderLen:]
	if len(rest)%RIPRouteRecordLen != 0 {
		return RIPMessage{}, fmt.Errorf("unmarshal rip: trailing %d bytes: %w", len(rest), ErrMalformed)
	}

	n := len(rest) / RIPRouteRecordLen
	m.Routes = make([]RIPRoute, n)
	for i := 0; i < n; i++ {
		rec := rest[i*RIPRouteRecordLen : (i+1)*RIPRouteRecordLen]
		var r RIPRoute
		copy(r.IP[:], rec[4:8])
		copy(r.Mask[:], rec[8:12])
		copy(r.NextHop[:], rec[12:16])
		r.Metric = binary.BigEndian.Uint32(rec[16:20])
		m.Routes[i] = r
	}

	return m, nil
}
