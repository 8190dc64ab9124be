package violation

import (
	"sync"
	"time"
)

// Debouncer runs the last function scheduled for a key once the key has been quiet for the delay.
type Debouncer interface {
	// Debounce (re)schedules fn for key, superseding any function not yet run for that key.
	Debounce(key string, delay time.Duration, fn func())
	// Cancel drops the function scheduled for key, reporting whether there was one.
	Cancel(key string) bool
	// Flush runs every scheduled function now, in the calling goroutine.
	Flush()
	// Stop drops every scheduled function.
	Stop()
	// Pending returns the number of scheduled functions.
	Pending() int
}

type debounceEntry struct {
	timer *time.Timer
	fn    func()
}

// TimerDebouncer is a Debouncer backed by time.AfterFunc.
type TimerDebouncer struct {
	mu      sync.Mutex
	entries map[string]*debounceEntry
	stopped bool
}

var _ Debouncer = (*TimerDebouncer)(nil)

func NewTimerDebouncer() *TimerDebouncer {
	return &TimerDebouncer{entries: make(map[string]*debounceEntry)}
}

func (d *TimerDebouncer) Debounce(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if prev, ok := d.entries[key]; ok {
		prev.timer.Stop()
	}
	entry := &debounceEntry{fn: fn}
	entry.timer = time.AfterFunc(delay, func() { d.fire(key, entry) })
	d.entries[key] = entry
}

// fire runs entry if it is still the one scheduled for key; a superseded timer that
// fired before it could be stopped finds a different entry and does nothing.
func (d *TimerDebouncer) fire(key string, entry *debounceEntry) {
	d.mu.Lock()
	if cur, ok := d.entries[key]; !ok || cur != entry {
		d.mu.Unlock()
		return
	}
	delete(d.entries, key)
	d.mu.Unlock()

	entry.fn()
}

func (d *TimerDebouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[key]
	if ok {
		entry.timer.Stop()
		delete(d.entries, key)
	}
	return ok
}

func (d *TimerDebouncer) Flush() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.entries))
	for key, entry := range d.entries {
		entry.timer.Stop()
		fns = append(fns, entry.fn)
		delete(d.entries, key)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (d *TimerDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, entry := range d.entries {
		entry.timer.Stop()
		delete(d.entries, key)
	}
	d.stopped = true
}

func (d *TimerDebouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
