// Package frame implements bit-exact encode/decode of the wire formats the
// simulator moves between port buffers: Ethernet II, Ethernet 802.3 LLC,
// ARP, IPv4, ICMP, RSTP BPDU, and the RIP route-advertisement carrier.
//
// Every frame kind follows the same shape: a typed struct, a Marshal that
// returns a newly allocated buffer of big-endian fields, and an Unmarshal
// that validates size bounds before decoding. Checksums and the Ethernet
// FCS are accepted as zero on decode and emitted as zero on encode --
// wire-level integrity checking is out of scope for this simulator.
package frame
