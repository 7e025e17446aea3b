package sim

import "errors"

// Sentinel errors surfaced by the device registry.
var (
	// ErrDeviceNotFound indicates a handle does not name a live device.
	ErrDeviceNotFound = errors.New("sim: device not found")

	// ErrWrongDeviceKind indicates an operation was aimed at a device of
	// a kind it does not support (e.g. EnableRIP on a switch).
	ErrWrongDeviceKind = errors.New("sim: operation not supported by this device kind")
)
