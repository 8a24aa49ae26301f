// SPDX-License-Identifier: Unlicense OR MIT

package input

// Linux input event types and codes used by touchscreens.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport  = 0
	synDropped = 3

	btnTouch = 0x14a

	absX        = 0x00
	absY        = 0x01
	absPressure = 0x18
)

// rawEvent is the payload of a Linux input_event.
type rawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// deviceState is the contact state read back from a device.
type deviceState struct {
	Touch    bool
	X, Y     int
	Pressure int
}

// decoder folds evdev events into samples, one per SYN_REPORT.
type decoder struct {
	x, y        int
	pressure    int
	touch       bool
	hasPressure bool
	hasTouch    bool
	dirty       bool
	dropping    bool
	// query reads the current device state after events were
	// dropped. Without it, contact is assumed lifted.
	query func() (deviceState, error)
}

// feed consumes one event and reports a completed sample.
func (d *decoder) feed(ev rawEvent) (Sample, bool) {
	switch ev.Type {
	case evSyn:
		switch ev.Code {
		case synDropped:
			d.dropping = true
			return Sample{}, false
		case synReport:
			if d.dropping {
				// Events up to and including this report are incomplete.
				d.dropping = false
				d.dirty = false
				d.resync()
				return d.sample(), true
			}
			if !d.dirty {
				return Sample{}, false
			}
			d.dirty = false
			return d.sample(), true
		}
	case evKey:
		if ev.Code == btnTouch && !d.dropping {
			d.hasTouch = true
			d.touch = ev.Value != 0
			d.dirty = true
		}
	case evAbs:
		if d.dropping {
			return Sample{}, false
		}
		switch ev.Code {
		case absX:
			d.x = int(ev.Value)
			d.dirty = true
		case absY:
			d.y = int(ev.Value)
			d.dirty = true
		case absPressure:
			d.hasPressure = true
			d.pressure = int(ev.Value)
			d.dirty = true
		}
	}
	return Sample{}, false
}

// resync replaces the contact state lost in a buffer overrun.
func (d *decoder) resync() {
	if d.query != nil {
		st, err := d.query()
		if err == nil {
			d.x, d.y = st.X, st.Y
			d.touch = st.Touch
			d.pressure = st.Pressure
			if st.Touch {
				d.hasTouch = true
			}
			return
		}
	}
	d.touch = false
	d.pressure = 0
}

// sample reports contact as pressure 1 so that pressure changes
// within one contact are not seen as a new button.
func (d *decoder) sample() Sample {
	contact := d.hasPressure && d.pressure > 0
	if d.hasTouch {
		contact = d.touch
	}
	s := Sample{X: d.x, Y: d.y}
	if contact {
		s.Pressure = 1
	}
	return s
}
