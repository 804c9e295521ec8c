package engine

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Schedule calls into one call of fn, run
// once the calls have been quiet for the delay.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Schedule (re)starts the quiet period.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	current := d.generation
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stale := current != d.generation
		if !stale {
			d.timer = nil
		}
		d.mu.Unlock()
		// A timer that fired while a newer Schedule was arriving is
		// superseded by that call's own timer.
		if stale {
			return
		}
		d.fn()
	})
}

// Cancel drops a pending call. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.generation++
	d.timer.Stop()
	d.timer = nil
	return true
}

// Flush drops any pending call and runs fn now, on the caller's
// goroutine.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
	d.fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
