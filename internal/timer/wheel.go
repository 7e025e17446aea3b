// Package timer implements the shared timer wheel every tick-driven
// device owns: a set of named actions, each with a
// next-ready tick, a rescheduling interval, and a persist flag. This
// generalizes the ARP pending-buffer retry bookkeeping and the RSTP
// hello/init/max-age timers into one primitive rather than duplicating
// the bounded-retry pattern in both places.
package timer

// Key identifies one scheduled action within a Wheel. Callers typically
// use a small string or a fmt.Sprintf'd composite (e.g. "hello:port3") as
// the key.
type Key string

// entry is one scheduled action.
type entry struct {
	nextReadyTick uint64
	intervalTicks uint64
	persist       bool
}

// Wheel holds every timer owned by one device. It has no notion of wall
// time; it is driven entirely by the tick values callers pass in.
type Wheel struct {
	entries map[Key]entry
}

// NewWheel returns an empty timer wheel.
func NewWheel() *Wheel {
	return &Wheel{entries: make(map[Key]entry)}
}

// Schedule arms or re-arms key to fire at tick, then, if persist is set,
// to keep firing every intervalTicks thereafter. Scheduling an existing
// key overwrites its prior arming (idempotent: the same call repeated
// leaves the same state).
func (w *Wheel) Schedule(key Key, tick uint64, intervalTicks uint64, persist bool) {
	w.entries[key] = entry{
		nextReadyTick: tick,
		intervalTicks: intervalTicks,
		persist:       persist,
	}
}

// Cancel removes a scheduled key. Canceling an unscheduled key is a no-op.
func (w *Wheel) Cancel(key Key) {
	delete(w.entries, key)
}

// Scheduled reports whether key currently has an armed entry.
func (w *Wheel) Scheduled(key Key) bool {
	_, ok := w.entries[key]
	return ok
}

// Ready returns every key whose next-ready tick has arrived by tick,
// in no particular order.
func (w *Wheel) Ready(tick uint64) []Key {
	var ready []Key
	for k, e := range w.entries {
		if e.nextReadyTick <= tick {
			ready = append(ready, k)
		}
	}
	return ready
}

// Advance clears every ready, non-persistent entry and reschedules every
// ready, persistent entry to fire again intervalTicks after tick. Call
// this once per device tick after acting on the keys from Ready.
func (w *Wheel) Advance(tick uint64) {
	for k, e := range w.entries {
		if e.nextReadyTick > tick {
			continue
		}
		if e.persist {
			e.nextReadyTick = tick + e.intervalTicks
			w.entries[k] = e
			continue
		}
		delete(w.entries, k)
	}
}
