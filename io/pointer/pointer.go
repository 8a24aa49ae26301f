// SPDX-License-Identifier: Unlicense OR MIT

// Package pointer defines the phase-tagged pointer events a host
// sends to an embedded engine.
//
// A single contact produces the sequence
//
//	Down Move* (Up | Cancel)
//
// Timestamps within a session never decrease.
package pointer

import (
	"fmt"
	"time"

	"flutterpi.org/io/event"
)

// Event is a pointer event.
type Event struct {
	Phase Phase
	// Button is the raw contact value that produced the event.
	// Zero for Up events produced by a lifted contact.
	Button int
	// X and Y are absolute device coordinates.
	X, Y float64
	// Time is when the event was emitted. The timestamp
	// is relative to an undefined, monotonic base.
	Time time.Duration
}

// Phase of an Event.
type Phase uint8

const (
	// Cancel is generated when the current contact is
	// interrupted by the system.
	Cancel Phase = iota
	// Up is the release of a contact.
	Up
	// Down is the start of a contact.
	Down
	// Move of a pressed contact.
	Move
)

func (p Phase) String() string {
	switch p {
	case Cancel:
		return "Cancel"
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Move:
		return "Move"
	default:
		panic("unknown Phase")
	}
}

// Micros returns the event timestamp in microseconds.
func (e Event) Micros() uint64 {
	return uint64(e.Time / time.Microsecond)
}

func (e Event) String() string {
	return fmt.Sprintf("%v(%g,%g)@%dus", e.Phase, e.X, e.Y, e.Micros())
}

func (Event) ImplementsEvent() {}

var _ event.Event = Event{}
