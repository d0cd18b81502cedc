package timer

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Manual is a Scheduler on a fake clock driven by Advance. Callbacks run
// synchronously on the goroutine calling Advance, in deadline order.
type Manual struct {
	clock *clockwork.FakeClock

	mu      sync.Mutex
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	m     *Manual
	at    time.Time
	seq   int
	f     func()
	due   chan struct{}
	timer clockwork.Timer

	stopped bool
	fired   bool
}

// NewManual returns a scheduler on a fresh fake clock
func NewManual() *Manual {
	return &Manual{clock: clockwork.NewFakeClock()}
}

// Now returns the fake time
func (m *Manual) Now() time.Time {
	return m.clock.Now()
}

// AfterFunc registers f to run once the clock passes d from now
func (m *Manual) AfterFunc(d time.Duration, f func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{m: m, at: m.clock.Now().Add(d), seq: m.seq, f: f, due: make(chan struct{})}
	// the fake clock only reports expiry; f itself runs inside Advance
	t.timer = m.clock.AfterFunc(d, func() { close(t.due) })
	m.pending = append(m.pending, t)
	return t
}

// Stop cancels the callback
func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

// Advance moves the clock forward and runs every callback that became due,
// including ones scheduled by callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	target := m.clock.Now().Add(d)

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		if now := m.clock.Now(); t.at.After(now) {
			m.clock.Advance(t.at.Sub(now))
		}
		<-t.due
		t.f()
	}

	if now := m.clock.Now(); target.After(now) {
		m.clock.Advance(target.Sub(now))
	}
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.pending = live

	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].at.Equal(m.pending[j].at) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].at.Before(m.pending[j].at)
	})

	if len(m.pending) == 0 || m.pending[0].at.After(target) {
		return nil
	}

	t := m.pending[0]
	t.fired = true
	return t
}

// Pending returns the number of callbacks that have neither fired nor been
// stopped
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
