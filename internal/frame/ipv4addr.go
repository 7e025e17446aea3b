package frame

import (
	"fmt"
	"net/netip"
)

// IPv4AddrLen is the length in bytes of an IPv4 address.
const IPv4AddrLen = 4

// IPv4Address is a 4-octet IPv4 address.
type IPv4Address [IPv4AddrLen]byte

// LoopbackIPv4 is the conventional IPv4 loopback address used to trigger
// the self-delivery path.
var LoopbackIPv4 = IPv4Address{127, 0, 0, 1}

// GlobalBroadcastIPv4 is the limited broadcast address 255.255.255.255.
var GlobalBroadcastIPv4 = IPv4Address{255, 255, 255, 255}

// RIPMulticastIPv4 is the multicast destination used for RIP advertisements.
var RIPMulticastIPv4 = IPv4Address{224, 0, 0, 0}

// ZeroIPv4 is the unspecified/unknown address 0.0.0.0.
var ZeroIPv4 = IPv4Address{}

// IsLoopback reports whether the address is 127.0.0.1.
func (a IPv4Address) IsLoopback() bool {
	return a == LoopbackIPv4
}

// IsMulticast reports whether the address falls in 224.0.0.0/4.
func (a IPv4Address) IsMulticast() bool {
	return a[0]&0xF0 == 0xE0
}

// IsGlobalBroadcast reports whether the address is 255.255.255.255.
func (a IPv4Address) IsGlobalBroadcast() bool {
	return a == GlobalBroadcastIPv4
}

// IsZero reports whether the address is 0.0.0.0.
func (a IPv4Address) IsZero() bool {
	return a == ZeroIPv4
}

// Network returns the network address for the address under mask,
// computed octet-wise: addr & mask.
func (a IPv4Address) Network(mask IPv4Address) IPv4Address {
	var n IPv4Address
	for i := range n {
		n[i] = a[i] & mask[i]
	}
	return n
}

// SameSubnet reports whether a and other share the same network address
// under mask.
func (a IPv4Address) SameSubnet(other, mask IPv4Address) bool {
	return a.Network(mask) == other.Network(mask)
}

// MaskOnesCount returns the number of one-bits in the mask, used to rank
// longest-prefix matches during router forwarding lookup.
func (a IPv4Address) MaskOnesCount() int {
	n := 0
	for _, b := range a {
		for b != 0 {
			n += int(b & 1)
			b >>= 1
		}
	}
	return n
}

// String renders the address in dotted-decimal notation.
func (a IPv4Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// ParseIPv4 parses dotted-decimal text (e.g. "10.0.0.1") into an
// IPv4Address, rejecting IPv6 text.
func ParseIPv4(s string) (IPv4Address, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPv4Address{}, fmt.Errorf("parse ipv4 address %q: %w", s, err)
	}
	if !addr.Is4() {
		return IPv4Address{}, fmt.Errorf("parse ipv4 address %q: not an IPv4 address", s)
	}
	return IPv4Address(addr.As4()), nil
}
