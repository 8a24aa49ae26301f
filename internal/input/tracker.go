// SPDX-License-Identifier: Unlicense OR MIT

// Package input turns raw single-point touch samples into
// phase-tagged pointer events.
package input

import (
	"time"

	"flutterpi.org/io/pointer"
)

// Sample is one raw reading of an absolute pointing device.
type Sample struct {
	// Pressure is zero when there is no contact.
	Pressure int
	X, Y     int
}

// Tracker translates a sample stream into pointer events. A Tracker
// serves one input stream and is not safe for concurrent use.
type Tracker struct {
	lastButton int
	lastTime   time.Duration
	now        func() time.Duration
}

// NewTracker returns a Tracker timestamping events with a monotonic
// clock started now.
func NewTracker() *Tracker {
	start := time.Now()
	return newTrackerClock(func() time.Duration { return time.Since(start) })
}

func newTrackerClock(now func() time.Duration) *Tracker {
	return &Tracker{now: now}
}

// Translate feeds one sample to the tracker and returns the event it
// produces, if any. Samples without contact following samples without
// contact produce no event.
//
// A change between two different nonzero values produces Up, the
// same as a lifted contact.
func (t *Tracker) Translate(s Sample) (pointer.Event, bool) {
	button := s.Pressure
	if t.lastButton == 0 && button == 0 {
		return pointer.Event{}, false
	}
	var phase pointer.Phase
	switch {
	case t.lastButton == 0:
		phase = pointer.Down
	case t.lastButton == button:
		phase = pointer.Move
	default:
		phase = pointer.Up
	}
	t.lastButton = button
	return pointer.Event{
		Phase:  phase,
		Button: button,
		X:      float64(s.X),
		Y:      float64(s.Y),
		Time:   t.stamp(),
	}, true
}

// Pressed reports whether the last sample had contact.
func (t *Tracker) Pressed() bool {
	return t.lastButton != 0
}

func (t *Tracker) stamp() time.Duration {
	now := t.now()
	if now < t.lastTime {
		now = t.lastTime
	}
	t.lastTime = now
	return now
}
