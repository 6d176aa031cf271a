package feed

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period a search query must survive before the
// feed evaluates it.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer is a trailing-edge debouncer for search input. Every Input call
// restarts the quiet period; only the last value settles.
type Debouncer struct {
	mu       sync.Mutex
	wait     time.Duration
	timer    *time.Timer
	gen      uint64
	pending  string
	settled  string
	onSettle func(string)
}

// NewDebouncer creates a debouncer. onSettle may be nil and runs on the timer
// goroutine.
func NewDebouncer(wait time.Duration, onSettle func(string)) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer{wait: wait, onSettle: onSettle}
}

// Input records a keystroke-level query and restarts the quiet period.
func (d *Debouncer) Input(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = query
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a newer Input superseded this timer
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.settled = d.pending
	d.timer = nil
	value, cb := d.settled, d.onSettle
	d.mu.Unlock()

	if cb != nil {
		cb(value)
	}
}

// Settled returns the last query that survived the quiet period.
func (d *Debouncer) Settled() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Pending returns the latest raw input, settled or not.
func (d *Debouncer) Pending() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush settles the pending query immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.settled = d.pending
	value, cb := d.settled, d.onSettle
	d.mu.Unlock()

	if cb != nil {
		cb(value)
	}
}

// Stop cancels any pending timer without settling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
