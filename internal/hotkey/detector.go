/*
Package hotkey watches the keyboard for the trigger combination and nothing
else.

A Source delivers raw key transitions. The Detector turns them into
activations: it fires once on the rising edge of the exact configured
combination, never while keys are held and never for a subset or superset.
Keys outside the combination are counted, not remembered, and every event is
dropped as soon as it has been observed.
*/
package hotkey

import (
	"github.com/bobersnip/TextShortcutter/internal/keys"
)

// KeyState is the kind of key transition.
type KeyState uint8

const (
	KeyUp KeyState = iota
	KeyDown
	KeyRepeat
	// KeyResync means events were lost. Held lists the keys down at that
	// moment, when the source could read them.
	KeyResync
)

// KeyEvent is one key transition. Code identifies the physical key so that
// left and right variants of a modifier are tracked separately; Key is its
// logical identity, empty when unmapped.
type KeyEvent struct {
	Code  uint16
	Key   keys.Key
	State KeyState
	Held  []KeyEvent
}

// Detector is the edge detector for one combo. It is not safe for
// concurrent use.
type Detector struct {
	combo keys.Combo
	down  map[uint16]keys.Key // combo keys currently down, by physical code
	other int                 // number of non-combo keys currently down
}

// NewDetector returns a detector for combo.
func NewDetector(combo keys.Combo) *Detector {
	return &Detector{combo: combo, down: make(map[uint16]keys.Key, len(combo))}
}

// Combo returns the combination being watched.
func (d *Detector) Combo() keys.Combo { return d.combo }

// Observe folds ev into the key state and reports whether it completed the
// combination.
func (d *Detector) Observe(ev KeyEvent) bool {
	switch ev.State {
	case KeyRepeat:
		return false
	case KeyResync:
		d.resync(ev.Held)
		return false
	}

	before := d.allDown()
	inCombo := ev.Key != "" && d.combo.Contains(ev.Key)

	switch {
	case inCombo && ev.State == KeyDown:
		d.down[ev.Code] = ev.Key
	case inCombo:
		delete(d.down, ev.Code)
	case ev.State == KeyDown:
		d.other++
	case d.other > 0:
		d.other--
	}

	return !before && d.allDown() && d.other == 0
}

// Reset forgets every key, e.g. after the event stream was interrupted.
func (d *Detector) Reset() {
	clear(d.down)
	d.other = 0
}

// resync replaces the key state with held. It never fires: a combination
// that is already down when state is recovered needs a fresh press.
func (d *Detector) resync(held []KeyEvent) {
	d.Reset()
	for _, h := range held {
		if h.Key != "" && d.combo.Contains(h.Key) {
			d.down[h.Code] = h.Key
		} else {
			d.other++
		}
	}
}

func (d *Detector) allDown() bool {
	if len(d.combo) == 0 {
		return false
	}
	for _, k := range d.combo {
		held := false
		for _, dk := range d.down {
			if dk == k {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}
