// SPDX-License-Identifier: Unlicense OR MIT

//go:build !linux

package input

import (
	"context"
	"errors"
)

// Device is an evdev touchscreen. Only available on Linux.
type Device struct{}

// OpenDevice opens the evdev node at path.
func OpenDevice(path string, grab bool) (*Device, error) {
	return nil, errors.New("input: evdev devices are only supported on linux")
}

func (d *Device) Read(ctx context.Context) (Sample, error) {
	return Sample{}, ErrClosed
}

func (d *Device) Axes() (x, y Axis, err error) {
	return Axis{}, Axis{}, ErrClosed
}

func (d *Device) Close() error { return nil }
