package frame_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lp-netsim/netsim/internal/frame"
)

func TestICMPRoundTrip(t *testing.T) {
	t.Parallel()

	p := frame.ICMPPacket{
		Type:       frame.ICMPTypeEchoRequest,
		Identifier: 42,
		Sequence:   1,
		Data:       []byte("ping"),
	}

	buf := frame.MarshalICMP(p)
	got, err := frame.UnmarshalICMP(buf)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != p.Type || got.Identifier != p.Identifier || got.Sequence != p.Sequence {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Data, p.Data) {
		t.Fatalf("data mismatch: got %q, want %q", got.Data, p.Data)
	}
}

func TestICMPInvalidType(t *testing.T) {
	t.Parallel()

	buf := frame.MarshalICMP(frame.ICMPPacket{Type: frame.ICMPTypeEchoReply})
	buf[0] = 200

	_, err := frame.UnmarshalICMP(buf)
	if !errors.Is(err, frame.ErrMalformed) {
		t.Fatalf("want ErrMalformed, got %v", err)
	}
}
