package frame

import "errors"

// Sentinel errors surfaced by frame codecs. Decode
// errors are typed so callers can decide whether to log-and-drop (the
// default network-layer robustness policy) or propagate.
var (
	// ErrRunt indicates a frame shorter than its wire format's minimum size.
	ErrRunt = errors.New("frame: runt")

	// ErrGiant indicates a frame longer than its wire format's maximum size.
	ErrGiant = errors.New("frame: giant")

	// ErrMalformed indicates a frame of valid size with an invalid field
	// (e.g. an ARP opcode outside {1,2}, an IPv4 IHL below 5).
	ErrMalformed = errors.New("frame: malformed")

	// ErrBufTooSmall indicates the caller-provided buffer cannot hold the
	// encoded frame.
	ErrBufTooSmall = errors.New("frame: buffer too small")
)
