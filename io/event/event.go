// SPDX-License-Identifier: Unlicense OR MIT

// Package event contains the marker interface shared by the
// events a host forwards to an embedded engine.
package event

// Event is the marker interface for events.
type Event interface {
	ImplementsEvent()
}
