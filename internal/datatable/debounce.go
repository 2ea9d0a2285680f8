package datatable

import (
	"sync"
	"time"

	"github.com/romdo/go-debounce"
)

// Debouncer publishes the last scheduled value once no new value has been
// scheduled for the wait period. Every Schedule supersedes the pending one.
type Debouncer struct {
	wait time.Duration
	fn   func(string)

	mu      sync.Mutex
	pending string
	gen     uint64
	closed  bool
	call    func()
	cancel  func()
}

// NewDebouncer returns a Debouncer delivering settled values to fn. fn runs
// on a timer goroutine.
func NewDebouncer(wait time.Duration, fn func(string)) *Debouncer {
	if wait <= 0 {
		wait = DefaultSearchDelay
	}
	d := &Debouncer{wait: wait, fn: fn}
	d.rearm()
	return d
}

// rearm must be called with mu held (or before d is shared).
func (d *Debouncer) rearm() {
	gen := d.gen
	d.call, d.cancel = debounce.New(d.wait, func() { d.fire(gen) })
}

// Schedule restarts the quiet period with v as the pending value.
func (d *Debouncer) Schedule(v string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = v
	call := d.call
	d.mu.Unlock()
	call()
}

// Cancel drops the pending value, if any. Later calls to Schedule work as
// usual.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.gen++
	d.rearm()
	d.mu.Unlock()
	cancel()
}

// Close cancels the pending value and ignores every later Schedule.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.gen++
	d.closed = true
	d.mu.Unlock()
	cancel()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.mu.Unlock()
	d.fn(v)
}
