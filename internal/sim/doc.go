// Package sim implements the device registry and boundary API every
// front end (the netsimd control surface, tests, future GUI tooling)
// drives a simulation through: device creation,
// wiring, per-device configuration, port sniffing, and the tick loop
// itself. Nothing below this package is reachable except through the
// handles and methods Simulation exposes.
package sim
