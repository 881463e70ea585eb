package racechrono

import (
	"sync"
	"time"
)

// Timer holds at most one pending deadline. Arm replaces any pending
// deadline and returns a generation identifying the new one; the
// expiry function receives the generation it was armed under, so a
// consumer can discard an expiry that was replaced after its callback
// already started running.
type Timer interface {
	Arm(d time.Duration) uint64
	Cancel()
}

// TimerFactory builds the timer a Monitor drives its state ladder
// with. fn is the monitor's expiry function.
type TimerFactory func(fn func(gen uint64)) Timer

type afterFuncTimer struct {
	mu    sync.Mutex
	gen   uint64
	fn    func(gen uint64)
	timer *time.Timer
}

func newAfterFuncTimer(fn func(gen uint64)) Timer {
	return &afterFuncTimer{fn: fn}
}

func (t *afterFuncTimer) Arm(d time.Duration) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Generations start at 1 so a zero never matches a live deadline.
	t.gen++
	gen := t.gen

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		stale := gen != t.gen
		t.mu.Unlock()
		if !stale {
			t.fn(gen)
		}
	})
	return gen
}

func (t *afterFuncTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	if t.timer != nil {
		t.timer.Stop()
	}
}
