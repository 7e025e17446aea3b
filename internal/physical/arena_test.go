package physical_test

import (
	"errors"
	"testing"

	"github.com/lp-netsim/netsim/internal/physical"
)

func TestConnectDisconnectSymmetry(t *testing.T) {
	t.Parallel()

	a := physical.NewArena()
	h1 := a.NewPort()
	h2 := a.NewPort()

	if err := a.Connect(h1, h2); err != nil {
		t.Fatalf("connect: %v", err)
	}

	peer, ok, err := a.Peer(h1)
	if err != nil || !ok || peer != h2 {
		t.Fatalf("peer(h1) = %v, %v, %v; want %v, true, nil", peer, ok, err, h2)
	}
	peer, ok, err = a.Peer(h2)
	if err != nil || !ok || peer != h1 {
		t.Fatalf("peer(h2) = %v, %v, %v; want %v, true, nil", peer, ok, err, h1)
	}

	if err := a.Disconnect(h1); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, ok, _ := a.Peer(h1); ok {
		t.Fatalf("h1 still paired after disconnect")
	}
	if _, ok, _ := a.Peer(h2); ok {
		t.Fatalf("h2 still paired after peer was disconnected")
	}
}

func TestConnectRefusesBusyPort(t *testing.T) {
	t.Parallel()

	a := physical.NewArena()
	h1 := a.NewPort()
	h2 := a.NewPort()
	h3 := a.NewPort()

	if err := a.Connect(h1, h2); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := a.Connect(h1, h3); !errors.Is(err, physical.ErrPortBusy) {
		t.Fatalf("want ErrPortBusy, got %v", err)
	}
}

func TestHandleOutOfRange(t *testing.T) {
	t.Parallel()

	a := physical.NewArena()
	h := a.NewPort()

	if err := a.Send(h+99, []byte("x")); !errors.Is(err, physical.ErrPortOutOfRange) {
		t.Fatalf("want ErrPortOutOfRange, got %v", err)
	}
}

func TestTransmitMovesOutgoingToPeerIncomingInOrder(t *testing.T) {
	t.Parallel()

	a := physical.NewArena()
	h1 := a.NewPort()
	h2 := a.NewPort()
	if err := a.Connect(h1, h2); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := a.Send(h1, []byte("first")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := a.Send(h1, []byte("second")); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Outgoing is visible via peek before Transmit, and incoming is empty.
	out, _ := a.PeekOutgoing(h1)
	if len(out) != 2 {
		t.Fatalf("peek outgoing before transmit = %d frames, want 2", len(out))
	}
	in, _ := a.ConsumeIncoming(h2)
	if len(in) != 0 {
		t.Fatalf("incoming populated before transmit")
	}

	a.Transmit()

	got, err := a.ConsumeIncoming(h2)
	if err != nil {
		t.Fatalf("consume incoming: %v", err)
	}
	if len(got) != 2 || string(got[0]) != "first" || string(got[1]) != "second" {
		t.Fatalf("got %v, want [first second] in order", got)
	}

	// Outgoing was cleared by Transmit.
	out, _ = a.PeekOutgoing(h1)
	if len(out) != 0 {
		t.Fatalf("outgoing not cleared after transmit: %v", out)
	}

	// A second Transmit with nothing queued moves nothing.
	a.Transmit()
	got, _ = a.ConsumeIncoming(h2)
	if len(got) != 0 {
		t.Fatalf("spurious frames delivered on empty transmit: %v", got)
	}
}

func TestTransmitDiscardsUnpairedOutgoing(t *testing.T) {
	t.Parallel()

	a := physical.NewArena()
	h := a.NewPort()

	if err := a.Send(h, []byte("into the void")); err != nil {
		t.Fatalf("send: %v", err)
	}

	a.Transmit()

	out, _ := a.PeekOutgoing(h)
	if len(out) != 0 {
		t.Fatalf("unpaired outgoing not discarded: %v", out)
	}
	in, _ := a.PeekIncoming(h)
	if len(in) != 0 {
		t.Fatalf("unpaired port received its own frame back: %v", in)
	}
}

func TestSendToSelfBypassesCable(t *testing.T) {
	t.Parallel()

	a := physical.NewArena()
	h := a.NewPort()

	if err := a.SendToSelf(h, []byte("loopback")); err != nil {
		t.Fatalf("send to self: %v", err)
	}

	// Visible immediately, no Transmit required.
	got, err := a.ConsumeIncoming(h)
	if err != nil {
		t.Fatalf("consume incoming: %v", err)
	}
	if len(got) != 1 || string(got[0]) != "loopback" {
		t.Fatalf("got %v, want [loopback]", got)
	}
}

func TestDisconnectUnpairedPortIsNoop(t *testing.T) {
	t.Parallel()

	a := physical.NewArena()
	h := a.NewPort()

	if err := a.Disconnect(h); err != nil {
		t.Fatalf("disconnect unpaired port: %v", err)
	}
}
