package physical

import "fmt"

// Arena owns every port in a simulation. Devices never hold ports
// directly; they hold a PortHandle into the arena that created it,
// mirroring the central-registry pattern the interfaces above this
// package use for devices themselves.
type Arena struct {
	ports []port
}

// NewArena returns an empty port arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewPort allocates a fresh, unpaired port and returns its handle.
func (a *Arena) NewPort() PortHandle {
	a.ports = append(a.ports, newPort())
	return PortHandle(len(a.ports) - 1)
}

func (a *Arena) get(h PortHandle) (*port, error) {
	if h < 0 || int(h) >= len(a.ports) {
		return nil, fmt.Errorf("physical: handle %d: %w", h, ErrPortOutOfRange)
	}
	return &a.ports[h], nil
}

// Connect pairs two ports bidirectionally. Connecting an already-paired
// port is refused: a cable has exactly two ends.
func (a *Arena) Connect(h1, h2 PortHandle) error {
	p1, err := a.get(h1)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	p2, err := a.get(h2)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if p1.Connected() {
		return fmt.Errorf("connect: port %d: %w", h1, ErrPortBusy)
	}
	if p2.Connected() {
		return fmt.Errorf("connect: port %d: %w", h2, ErrPortBusy)
	}

	p1.peer = h2
	p2.peer = h1
	return nil
}

// Disconnect clears the pairing on h and, if it had a peer, on the peer
// too. Disconnecting an already-unpaired port is a no-op.
func (a *Arena) Disconnect(h PortHandle) error {
	p, err := a.get(h)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if !p.Connected() {
		return nil
	}

	peerHandle := p.peer
	p.peer = noPeer

	if peer, err := a.get(peerHandle); err == nil {
		peer.peer = noPeer
	}
	return nil
}

// Peer returns the handle a port is paired with, and whether it has one.
func (a *Arena) Peer(h PortHandle) (PortHandle, bool, error) {
	p, err := a.get(h)
	if err != nil {
		return 0, false, fmt.Errorf("peer: %w", err)
	}
	return p.peer, p.Connected(), nil
}

// Send enqueues an encoded frame onto h's outgoing buffer. It is not
// visible to the peer's incoming buffer until the next Transmit.
func (a *Arena) Send(h PortHandle, encoded []byte) error {
	p, err := a.get(h)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	p.outgoing = append(p.outgoing, encoded)
	return nil
}

// SendToSelf enqueues an encoded frame directly onto h's own incoming
// buffer, bypassing the cable entirely.
func (a *Arena) SendToSelf(h PortHandle, encoded []byte) error {
	p, err := a.get(h)
	if err != nil {
		return fmt.Errorf("send to self: %w", err)
	}
	p.incoming = append(p.incoming, encoded)
	return nil
}

// ConsumeIncoming drains and returns everything queued on h's incoming
// buffer, in arrival order.
func (a *Arena) ConsumeIncoming(h PortHandle) ([][]byte, error) {
	p, err := a.get(h)
	if err != nil {
		return nil, fmt.Errorf("consume incoming: %w", err)
	}
	out := p.incoming
	p.incoming = nil
	return out, nil
}

// PeekIncoming returns h's incoming buffer without draining it, for
// sniffing.
func (a *Arena) PeekIncoming(h PortHandle) ([][]byte, error) {
	p, err := a.get(h)
	if err != nil {
		return nil, fmt.Errorf("peek incoming: %w", err)
	}
	return p.incoming, nil
}

// PeekOutgoing returns h's outgoing buffer without draining it.
func (a *Arena) PeekOutgoing(h PortHandle) ([][]byte, error) {
	p, err := a.get(h)
	if err != nil {
		return nil, fmt.Errorf("peek outgoing: %w", err)
	}
	return p.outgoing, nil
}

// Transmit performs one simulator-wide cable pass: every port's outgoing
// buffer is moved onto its peer's incoming buffer, in order, and cleared.
// Unpaired ports have their outgoing buffer discarded. This is the only
// place frames cross from one device's interface to another's.
func (a *Arena) Transmit() {
	// Two-phase: collect every handoff before mutating any incoming
	// buffer, so that a port's own Transmit-time behavior never depends
	// on iteration order over the arena.
	type handoff struct {
		dst    PortHandle
		frames [][]byte
	}
	handoffs := make([]handoff, 0, len(a.ports))

	for i := range a.ports {
		p := &a.ports[i]
		if len(p.outgoing) == 0 {
			continue
		}
		if p.Connected() {
			handoffs = append(handoffs, handoff{dst: p.peer, frames: p.outgoing})
		}
		p.outgoing = nil
	}

	for _, h := range handoffs {
		dst := &a.ports[h.dst]
		dst.incoming = append(dst.incoming, h.frames...)
	}
}
