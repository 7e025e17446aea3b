package ipv4

import "errors"

// ErrUnreachable indicates sendv could not resolve a next hop and had no
// gateway to fall back to.
var ErrUnreachable = errors.New("ipv4: unreachable")
