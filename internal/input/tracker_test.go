// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flutterpi.org/io/pointer"
)

// steppingClock advances by step on every reading.
func steppingClock(start, step time.Duration) func() time.Duration {
	now := start
	return func() time.Duration {
		t := now
		now += step
		return t
	}
}

func translateAll(tr *Tracker, samples []Sample) []pointer.Event {
	var events []pointer.Event
	for _, s := range samples {
		if e, ok := tr.Translate(s); ok {
			events = append(events, e)
		}
	}
	return events
}

func phases(events []pointer.Event) []pointer.Phase {
	var ps []pointer.Phase
	for _, e := range events {
		ps = append(ps, e.Phase)
	}
	return ps
}

func TestTrackerHoverOnly(t *testing.T) {
	tr := NewTracker()
	events := translateAll(tr, []Sample{
		{0, 0, 0}, {0, 10, 10}, {0, 20, 5}, {0, 799, 479},
	})
	assert.Empty(t, events)
	assert.False(t, tr.Pressed())
}

func TestTrackerDownMoveUp(t *testing.T) {
	tr := NewTracker()
	events := translateAll(tr, []Sample{
		{5, 1, 1}, {5, 2, 2}, {0, 2, 2},
	})
	require.Equal(t, []pointer.Phase{pointer.Down, pointer.Move, pointer.Up}, phases(events))
	for i, want := range [][2]float64{{1, 1}, {2, 2}, {2, 2}} {
		assert.Equal(t, want[0], events[i].X)
		assert.Equal(t, want[1], events[i].Y)
	}
	assert.Equal(t, 5, events[0].Button)
	assert.Equal(t, 5, events[1].Button)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Time, events[i-1].Time)
	}
}

func TestTrackerButtonChangeIsUp(t *testing.T) {
	tr := NewTracker()
	events := translateAll(tr, []Sample{
		{3, 10, 10}, {7, 11, 11},
	})
	assert.Equal(t, []pointer.Phase{pointer.Down, pointer.Up}, phases(events))
	// The new value is the last button; the next identical sample moves.
	e, ok := tr.Translate(Sample{7, 12, 12})
	require.True(t, ok)
	assert.Equal(t, pointer.Move, e.Phase)
}

func TestTrackerSequences(t *testing.T) {
	for _, tc := range []struct {
		name    string
		samples []Sample
		want    []pointer.Phase
	}{
		{"TwoTaps", []Sample{{1, 0, 0}, {0, 0, 0}, {0, 0, 0}, {1, 5, 5}, {0, 5, 5}},
			[]pointer.Phase{pointer.Down, pointer.Up, pointer.Down, pointer.Up}},
		{"LongDrag", []Sample{{2, 0, 0}, {2, 1, 0}, {2, 2, 0}, {2, 3, 0}, {0, 3, 0}},
			[]pointer.Phase{pointer.Down, pointer.Move, pointer.Move, pointer.Move, pointer.Up}},
		{"HoverThenTap", []Sample{{0, 9, 9}, {4, 9, 9}, {0, 9, 9}},
			[]pointer.Phase{pointer.Down, pointer.Up}},
		{"NoRelease", []Sample{{1, 0, 0}, {1, 0, 0}},
			[]pointer.Phase{pointer.Down, pointer.Move}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, phases(translateAll(NewTracker(), tc.samples)))
		})
	}
}

func TestTrackerTimestampsNeverDecrease(t *testing.T) {
	readings := []time.Duration{10, 20, 15, 15, 30, 5}
	i := 0
	tr := newTrackerClock(func() time.Duration {
		r := readings[i]
		i++
		return r
	})
	events := translateAll(tr, []Sample{
		{1, 0, 0}, {1, 1, 1}, {1, 2, 2}, {1, 3, 3}, {1, 4, 4}, {0, 4, 4},
	})
	want := []time.Duration{10, 20, 20, 20, 30, 30}
	require.Len(t, events, len(want))
	for i, e := range events {
		assert.Equal(t, want[i], e.Time, "event %d", i)
	}
}

func TestTrackerTimestampAtEmission(t *testing.T) {
	tr := newTrackerClock(steppingClock(time.Second, time.Millisecond))
	// Hover samples do not read the clock.
	tr.Translate(Sample{0, 0, 0})
	e, ok := tr.Translate(Sample{1, 0, 0})
	require.True(t, ok)
	assert.Equal(t, time.Second, e.Time)
	assert.Equal(t, uint64(1000000), e.Micros())
}
