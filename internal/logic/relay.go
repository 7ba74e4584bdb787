package logic

import "time"

// truthy holds the accepted activation values for the button property.
var truthy = map[string]bool{
	"true": true,
	"True": true,
	"on":   true,
	"ON":   true,
}

// ParseButton reports whether value is an accepted activation value.
// There is no remote "off": the door toggles on each pulse, so anything
// else is ignored.
func ParseButton(value string) bool {
	return truthy[value]
}

// Relay tracks the opener relay and its automatic release.
// At most one release is pending; a new activation restarts the window.
type Relay struct {
	pulse       time.Duration
	activatedAt time.Time
	pending     bool
	counts      *Counts
}

// NewRelay creates an idle relay with the given pulse duration. counts may be nil.
func NewRelay(pulse time.Duration, counts *Counts) *Relay {
	return &Relay{pulse: pulse, counts: counts}
}

// Accept reports whether command is an activation value. Rejected commands
// are counted and leave the relay unchanged.
func (r *Relay) Accept(command string) bool {
	if ParseButton(command) {
		return true
	}
	if r.counts != nil {
		r.counts.RejectedCommands++
	}
	return false
}

// Commit starts, or restarts, the pulse window at now and returns the
// button=true event. Call it once the output has been driven active.
func (r *Relay) Commit(now time.Time) Event {
	if r.counts != nil && !r.pending {
		r.counts.RelayPulses++
	}
	r.activatedAt = now
	r.pending = true
	return buttonEvent(now, ButtonValueTrue)
}

// Tick releases the relay once the pulse duration has elapsed since the
// last activation. It returns the button=false event and true when the
// caller must drive the output idle.
func (r *Relay) Tick(now time.Time) (Event, bool) {
	if !r.pending || now.Sub(r.activatedAt) < r.pulse {
		return Event{}, false
	}
	r.pending = false
	r.activatedAt = time.Time{}
	return buttonEvent(now, ButtonValueFalse), true
}

// State returns the current relay state.
func (r *Relay) State() RelayState {
	if r.pending {
		return RelayActive
	}
	return RelayIdle
}

// ReleaseAt returns when the pending release is due, if one is pending.
func (r *Relay) ReleaseAt() (time.Time, bool) {
	if !r.pending {
		return time.Time{}, false
	}
	return r.activatedAt.Add(r.pulse), true
}

func buttonEvent(now time.Time, value string) Event {
	return Event{
		Timestamp: now,
		Node:      NodeOpener,
		Property:  PropertyButton,
		Value:     value,
	}
}
