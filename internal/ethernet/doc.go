// Package ethernet implements the Ethernet interface:
// the exclusive owner of one physical port, stamping and decoding frames
// through it. It dispatches Ethernet II and 802.3 LLC variants but applies
// no destination filtering of its own; that is left to the IPv4 interface
// and the devices built on top of it.
package ethernet
