package logic

import "time"

// Debouncer filters a raw digital line into a stable level.
// The stable level only changes once the raw level has held for the
// stability interval since its last transition.
type Debouncer struct {
	interval   time.Duration
	lastRaw    Level
	lastChange time.Time
	stable     Level
	seen       bool // at least one raw sample recorded
	baselined  bool // stable holds a committed level
}

// NewDebouncer creates a debouncer with the given stability interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Sample records a raw level observed at now and returns the stable level.
// ok is false until the line has held one level for a full interval.
func (d *Debouncer) Sample(raw Level, now time.Time) (level Level, ok bool) {
	if !d.seen || raw != d.lastRaw {
		d.seen = true
		d.lastRaw = raw
		d.lastChange = now
	}

	if now.Sub(d.lastChange) >= d.interval && (!d.baselined || d.lastRaw != d.stable) {
		d.stable = d.lastRaw
		d.baselined = true
	}

	return d.stable, d.baselined
}

// Stable returns the committed level and whether one exists yet.
func (d *Debouncer) Stable() (Level, bool) {
	return d.stable, d.baselined
}
