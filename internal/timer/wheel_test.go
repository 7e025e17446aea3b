package timer_test

import (
	"sort"
	"testing"

	"github.com/lp-netsim/netsim/internal/timer"
)

func TestOneShotFiresOnceThenGone(t *testing.T) {
	t.Parallel()

	w := timer.NewWheel()
	w.Schedule("arp:10.0.0.2", 5, 0, false)

	if ready := w.Ready(4); len(ready) != 0 {
		t.Fatalf("ready before due: %v", ready)
	}

	ready := w.Ready(5)
	if len(ready) != 1 || ready[0] != "arp:10.0.0.2" {
		t.Fatalf("ready = %v, want [arp:10.0.0.2]", ready)
	}

	w.Advance(5)
	if w.Scheduled("arp:10.0.0.2") {
		t.Fatalf("one-shot entry still scheduled after advance")
	}
}

func TestPersistentReschedules(t *testing.T) {
	t.Parallel()

	w := timer.NewWheel()
	w.Schedule("hello", 2, 2, true)

	ready := w.Ready(2)
	if len(ready) != 1 {
		t.Fatalf("ready = %v, want 1 entry", ready)
	}
	w.Advance(2)

	if ready := w.Ready(2); len(ready) != 0 {
		t.Fatalf("ready immediately after advance: %v", ready)
	}
	if ready := w.Ready(3); len(ready) != 0 {
		t.Fatalf("fired early: %v", ready)
	}
	ready = w.Ready(4)
	if len(ready) != 1 || ready[0] != "hello" {
		t.Fatalf("ready at tick 4 = %v, want [hello]", ready)
	}
}

func TestScheduleIsIdempotent(t *testing.T) {
	t.Parallel()

	w := timer.NewWheel()
	w.Schedule("k", 10, 5, true)
	w.Schedule("k", 10, 5, true)

	ready := w.Ready(10)
	if len(ready) != 1 {
		t.Fatalf("duplicate entries after repeated schedule: %v", ready)
	}
}

func TestRescheduleOverwritesPriorArming(t *testing.T) {
	t.Parallel()

	w := timer.NewWheel()
	w.Schedule("k", 10, 5, false)
	w.Schedule("k", 20, 5, false)

	if ready := w.Ready(10); len(ready) != 0 {
		t.Fatalf("fired at old tick after reschedule: %v", ready)
	}
	ready := w.Ready(20)
	if len(ready) != 1 {
		t.Fatalf("did not fire at new tick: %v", ready)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	w := timer.NewWheel()
	w.Schedule("k", 1, 0, false)
	w.Cancel("k")

	if w.Scheduled("k") {
		t.Fatalf("still scheduled after cancel")
	}
	if ready := w.Ready(1); len(ready) != 0 {
		t.Fatalf("canceled entry still ready: %v", ready)
	}
}

func TestMultipleReadyKeysSorted(t *testing.T) {
	t.Parallel()

	w := timer.NewWheel()
	w.Schedule("a", 1, 0, false)
	w.Schedule("b", 1, 0, false)
	w.Schedule("c", 5, 0, false)

	ready := w.Ready(1)
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	if len(ready) != 2 || ready[0] != "a" || ready[1] != "b" {
		t.Fatalf("ready = %v, want [a b]", ready)
	}
}
