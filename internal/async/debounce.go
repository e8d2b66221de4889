package async

import (
	"sync"
	"time"

	"github.com/banshee-data/ridealong/internal/timeutil"
)

// Debouncer runs only the last function handed to Trigger once the delay
// has elapsed without another Trigger.
type Debouncer struct {
	clock timeutil.Clock
	delay time.Duration

	mu      sync.Mutex
	timer   timeutil.Timer
	done    chan struct{}
	pending bool
}

// NewDebouncer creates a debouncer on the given clock. A nil clock uses
// the real clock.
func NewDebouncer(clock timeutil.Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger schedules fn, replacing any function still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	d.stopLocked()
	timer := d.clock.NewTimer(d.delay)
	done := make(chan struct{})
	d.timer, d.done, d.pending = timer, done, true
	d.mu.Unlock()

	go func() {
		select {
		case <-timer.C():
		case <-done:
			return
		}
		d.mu.Lock()
		if d.done != done {
			d.mu.Unlock()
			return
		}
		d.timer, d.done, d.pending = nil, nil, false
		d.mu.Unlock()
		fn()
	}()
}

// Cancel drops the waiting function, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		close(d.done)
	}
	d.timer, d.done, d.pending = nil, nil, false
}
