package frame

import "sync"

// MaxFrameSize is the largest buffer a port ever needs to hold: the
// maximum Ethernet frame.
const MaxFrameSize = EthernetMaxFrame

// BufferPool provides reusable byte slices for frame encode/decode,
// a sync.Pool for zero-allocation I/O. Callers Get() a *[]byte, reset
// its length to what they need, and Put() it back when done with it.
var BufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, MaxFrameSize)
		return &buf
	},
}
