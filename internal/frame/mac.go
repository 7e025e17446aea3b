package frame

import (
	"fmt"
	"net"
)

// MACAddrLen is the length in bytes of an Ethernet hardware address.
const MACAddrLen = 6

// MACAddress is a 6-octet Ethernet hardware address.
type MACAddress [MACAddrLen]byte

// BroadcastMAC is the all-ones Ethernet broadcast address.
var BroadcastMAC = MACAddress{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// BPDUGroupMAC is the IEEE 802.1D/802.1w bridge group address that carries
// spanning-tree BPDUs (01:80:C2:00:00:00).
var BPDUGroupMAC = MACAddress{0x01, 0x80, 0xC2, 0x00, 0x00, 0x00}

// ipv4MulticastPrefix is the 3-octet OUI IANA assigns to IPv4 multicast
// (01:00:5E), used to derive the link-layer destination for a multicast
// IPv4 datagram.
var ipv4MulticastPrefix = [3]byte{0x01, 0x00, 0x5E}

// IsMulticast reports whether the address is a group address: the
// least-significant bit of the first octet is set (IEEE 802 convention).
func (m MACAddress) IsMulticast() bool {
	return m[0]&0x01 != 0
}

// IsBroadcast reports whether the address is the all-ones broadcast address.
func (m MACAddress) IsBroadcast() bool {
	return m == BroadcastMAC
}

// IsZero reports whether the address is the all-zeros address.
func (m MACAddress) IsZero() bool {
	return m == MACAddress{}
}

// String renders the address in colon-separated hex, e.g. "01:23:45:67:89:ab".
func (m MACAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMAC parses colon- or hyphen-separated hex text into a MACAddress,
// rejecting anything but a 6-octet hardware address.
func ParseMAC(s string) (MACAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MACAddress{}, fmt.Errorf("parse mac address %q: %w", s, err)
	}
	if len(hw) != MACAddrLen {
		return MACAddress{}, fmt.Errorf("parse mac address %q: expected %d octets, got %d", s, MACAddrLen, len(hw))
	}
	var mac MACAddress
	copy(mac[:], hw)
	return mac, nil
}

// MACFromIPv4Multicast derives the link-layer multicast MAC for an IPv4
// multicast group address, mapping the low 23 bits of the group address
// into the 01:00:5E:xx:xx:xx range (RFC 1112).
func MACFromIPv4Multicast(ip IPv4Address) MACAddress {
	return MACAddress{
		ipv4MulticastPrefix[0], ipv4MulticastPrefix[1], ipv4MulticastPrefix[2],
		ip[1] & 0x7F, ip[2], ip[3],
	}
}
