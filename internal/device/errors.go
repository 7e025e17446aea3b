package device

import "errors"

// Sentinel errors surfaced by device configuration.
var (
	// ErrPortOutOfRange indicates a configuration call named a port index
	// outside the device's fixed port count.
	ErrPortOutOfRange = errors.New("device: port out of range")

	// ErrPortDisabled indicates a send attempt on an administratively
	// disabled router port.
	ErrPortDisabled = errors.New("device: port disabled")
)
