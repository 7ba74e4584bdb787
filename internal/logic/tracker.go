package logic

import "time"

// Polarity maps the sensor line level to a door position.
type Polarity struct {
	// OpenWhenHigh reports a HIGH line as an open door. With the reed switch
	// wired to ground and the input pulled up, HIGH means the magnet is away.
	OpenWhenHigh bool
}

// DefaultPolarity matches a pulled-up reed switch that closes with the door.
var DefaultPolarity = Polarity{OpenWhenHigh: true}

// State maps a line level to a door state.
func (p Polarity) State(l Level) DoorState {
	if bool(l) == p.OpenWhenHigh {
		return DoorOpen
	}
	return DoorClosed
}

// DoorTracker reports each change of the debounced sensor level exactly once.
// It starts with no published level, so the first stable level is reported.
type DoorTracker struct {
	polarity  Polarity
	last      Level
	published bool
	counts    *Counts
}

// NewDoorTracker creates a tracker with the given polarity. counts may be nil.
func NewDoorTracker(polarity Polarity, counts *Counts) *DoorTracker {
	return &DoorTracker{polarity: polarity, counts: counts}
}

// Update compares level against the last published level and returns a
// door event when they differ.
func (t *DoorTracker) Update(level Level, now time.Time) (Event, bool) {
	if t.published && level == t.last {
		return Event{}, false
	}

	initial := !t.published
	t.last = level
	t.published = true

	state := t.polarity.State(level)
	value := DoorValueClose
	if state == DoorOpen {
		value = DoorValueOpen
	}

	if t.counts != nil && !initial {
		if state == DoorOpen {
			t.counts.DoorOpened++
		} else {
			t.counts.DoorClosed++
		}
	}

	return Event{
		Timestamp: now,
		Node:      NodeOpener,
		Property:  PropertyDoor,
		Value:     value,
	}, true
}

// State returns the last published door state.
func (t *DoorTracker) State() DoorState {
	if !t.published {
		return DoorUnknown
	}
	return t.polarity.State(t.last)
}
