package timer

import (
	"testing"
	"time"
)

func TestManualRunsInDeadlineOrder(t *testing.T) {
	m := NewManual()
	var order []string

	m.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })

	m.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("after 250ms order = %v, want [a b]", order)
	}

	m.Advance(50 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Errorf("after 300ms order = %v, want [a b c]", order)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual()
	fired := false
	h := m.AfterFunc(time.Second, func() { fired = true })

	if !h.Stop() {
		t.Error("first Stop should report true")
	}
	if h.Stop() {
		t.Error("second Stop should report false")
	}

	m.Advance(2 * time.Second)
	if fired {
		t.Error("stopped callback fired")
	}
}

func TestManualNestedScheduling(t *testing.T) {
	m := NewManual()
	count := 0
	m.AfterFunc(time.Second, func() {
		count++
		m.AfterFunc(time.Second, func() { count++ })
	})

	m.Advance(1500 * time.Millisecond)
	if count != 1 {
		t.Fatalf("count = %d after 1.5s, want 1", count)
	}
	m.Advance(500 * time.Millisecond)
	if count != 2 {
		t.Errorf("count = %d after 2s, want 2", count)
	}
}

func TestManualClockAdvances(t *testing.T) {
	m := NewManual()
	start := m.Now()
	var firedAt time.Time
	m.AfterFunc(time.Second, func() { firedAt = m.Now() })

	m.Advance(3 * time.Second)
	if got := firedAt.Sub(start); got != time.Second {
		t.Errorf("callback saw %v elapsed, want 1s", got)
	}
	if got := m.Now().Sub(start); got != 3*time.Second {
		t.Errorf("clock moved %v, want 3s", got)
	}
}

func TestRealScheduler(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real scheduler never fired")
	}

	Stop(nil)
}
