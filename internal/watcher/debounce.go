package watcher

import (
	"sync"
	"time"
)

// Debouncer delivers a path to its callback once the path has produced no
// new events for the delay.
type Debouncer struct {
	delay time.Duration
	fire  func(path string)

	mu      sync.Mutex
	seq     uint64
	waiting map[string]debounceEntry
}

type debounceEntry struct {
	timer *time.Timer
	seq   uint64
}

// NewDebouncer creates a Debouncer. A nil fire func discards settled paths.
func NewDebouncer(delay time.Duration, fire func(path string)) *Debouncer {
	return &Debouncer{
		delay:   delay,
		fire:    fire,
		waiting: make(map[string]debounceEntry),
	}
}

// Add (re)starts the quiet period for path.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.waiting[path]; ok {
		prev.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.waiting[path] = debounceEntry{
		seq:   seq,
		timer: time.AfterFunc(d.delay, func() { d.settle(path, seq) }),
	}
}

// settle runs when a timer expires. A timer stopped too late to prevent its
// func from running carries a stale seq and is ignored.
func (d *Debouncer) settle(path string, seq uint64) {
	d.mu.Lock()
	entry, ok := d.waiting[path]
	if !ok || entry.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.waiting, path)
	d.mu.Unlock()

	if d.fire != nil {
		d.fire(path)
	}
}

// Cancel forgets path without delivering it.
func (d *Debouncer) Cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drop(path)
}

// CancelAll forgets every waiting path.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path := range d.waiting {
		d.drop(path)
	}
}

func (d *Debouncer) drop(path string) {
	if entry, ok := d.waiting[path]; ok {
		entry.timer.Stop()
		delete(d.waiting, path)
	}
}

// PendingCount returns how many paths are still inside their quiet period.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiting)
}

// IsPending reports whether path is inside its quiet period.
func (d *Debouncer) IsPending(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.waiting[path]
	return ok
}
