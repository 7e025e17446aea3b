// Package device implements the two simulated network elements built on
// top of the Ethernet and IPv4 layers:
// a learning bridge with IEEE 802.1w Rapid Spanning Tree, and a
// distance-vector router speaking a RIP-style protocol.
package device
