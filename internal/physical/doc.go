// Package physical implements the synchronous physical transport between
// port buffers: a central arena of ports, each with
// an incoming and an outgoing FIFO queue, and a single "transmit" pass that
// atomically drains every outgoing queue into its peer's incoming queue.
//
// Ports live in a central arena and are addressed by a stable integer
// handle rather than the source's reference-counted interior-mutable
// cells: interfaces hold a PortHandle, the arena owns
// the actual Port values, and the cable simulator is simply "iterate the
// arena."
package physical
