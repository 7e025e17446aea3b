// Package ipv4 implements the IPv4 interface: a
// subnet-aware send path backed by a bounded ARP retry buffer, passive
// ARP learning, an ICMP echo reflex, loopback delivery, and multicast
// emission for RIP. This is the densest piece of the simulator: every
// other layer either feeds it frames or consumes what it decodes.
package ipv4
