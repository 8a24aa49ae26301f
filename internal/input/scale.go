// SPDX-License-Identifier: Unlicense OR MIT

package input

import "context"

// Axis is the value range a device reports for one coordinate.
type Axis struct {
	Min, Max int
}

func (a Axis) valid() bool { return a.Max > a.Min }

// Scale returns a Source mapping the coordinates of src from the x and
// y axes onto a width by height surface. Samples pass through
// unchanged when an axis range is empty.
func Scale(src Source, x, y Axis, width, height int) Source {
	return &scaled{src: src, x: x, y: y, w: width, h: height}
}

type scaled struct {
	src  Source
	x, y Axis
	w, h int
}

func (s *scaled) Read(ctx context.Context) (Sample, error) {
	smp, err := s.src.Read(ctx)
	if err != nil {
		return smp, err
	}
	smp.X = rescale(smp.X, s.x, s.w)
	smp.Y = rescale(smp.Y, s.y, s.h)
	return smp, nil
}

func (s *scaled) Close() error { return s.src.Close() }

func rescale(v int, a Axis, size int) int {
	if !a.valid() || size <= 0 {
		return v
	}
	v = min(max(v, a.Min), a.Max)
	return (v - a.Min) * (size - 1) / (a.Max - a.Min)
}
