package frame_test

import (
	"errors"
	"testing"

	"github.com/lp-netsim/netsim/internal/frame"
)

func TestARPRoundTrip(t *testing.T) {
	t.Parallel()

	f := frame.ARPFrame{
		Op:        frame.ARPOpRequest,
		SenderMAC: mac(1),
		SenderIP:  frame.IPv4Address{192, 168, 1, 1},
		TargetMAC: frame.MACAddress{},
		TargetIP:  frame.IPv4Address{192, 168, 1, 2},
	}

	buf := frame.MarshalARP(f)
	if len(buf) != frame.ARPFrameLen {
		t.Fatalf("encoded length = %d, want %d", len(buf), frame.ARPFrameLen)
	}

	got, err := frame.UnmarshalARP(buf)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != f {
		t.Fatalf("got %+v, want %+v", got, f)
	}
}

func TestARPInvalidOpcode(t *testing.T) {
	t.Parallel()

	f := frame.ARPFrame{Op: frame.ARPOpReply}
	buf := frame.MarshalARP(f)
	buf[7] = 9 // corrupt the low byte of the op field

	_, err := frame.UnmarshalARP(buf)
	if !errors.Is(err, frame.ErrMalformed) {
		t.Fatalf("want ErrMalformed, got %v", err)
	}
}

func TestARPRunt(t *testing.T) {
	t.Parallel()

	_, err := frame.UnmarshalARP(make([]byte, frame.ARPFrameLen-1))
	if !errors.Is(err, frame.ErrRunt) {
		t.Fatalf("want ErrRunt, got %v", err)
	}
}
