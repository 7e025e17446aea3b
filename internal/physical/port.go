package physical

import "errors"

// Sentinel errors for port configuration.
var (
	// ErrPortOutOfRange indicates a PortHandle does not name a port in the arena.
	ErrPortOutOfRange = errors.New("physical: port out of range")

	// ErrPortBusy indicates an attempt to connect an already-paired port.
	ErrPortBusy = errors.New("physical: port already connected")
)

// PortHandle is a stable index into an Arena's port vector. Handles are
// never reused within the lifetime of an Arena once allocated, so a
// dangling handle from a deleted device simply becomes permanently unpaired.
type PortHandle int

// noPeer is the sentinel meaning "this port has no peer". It is -1, not
// the zero value, because 0 is a valid handle; newPort sets it explicitly.
const noPeer = PortHandle(-1)

// port is one FIFO-queued link endpoint. Frames are
// represented as raw encoded bytes; decoding happens one layer up.
type port struct {
	incoming [][]byte
	outgoing [][]byte
	peer     PortHandle
}

func newPort() port {
	return port{peer: noPeer}
}

// Connected reports whether the port currently has a peer.
func (p port) Connected() bool {
	return p.peer != noPeer
}
