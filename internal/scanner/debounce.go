package scanner

import (
	"sync"
	"time"
)

// DefaultDebounce is how long an identical code is suppressed after it was
// last accepted.
const DefaultDebounce = 800 * time.Millisecond

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Debouncer suppresses repeats of the same code inside a time window.
// Cameras and some wedge scanners report one barcode many times per second.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	clock  Clock
	last   string
	lastAt time.Time
}

// NewDebouncer creates a debouncer. A nil clock uses the system clock and a
// non-positive window disables suppression.
func NewDebouncer(window time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = systemClock{}
	}
	return &Debouncer{window: window, clock: clock}
}

// Accept reports whether code should be processed, and records it if so.
func (d *Debouncer) Accept(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if d.window > 0 && code == d.last && now.Sub(d.lastAt) < d.window {
		return false
	}
	d.last = code
	d.lastAt = now
	return true
}

// Reset forgets the last accepted code.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = ""
	d.lastAt = time.Time{}
}
