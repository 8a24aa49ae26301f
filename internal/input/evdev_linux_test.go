// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux

package input

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// pipeDevice returns a Device reading from a pipe, the write end and
// a function closing the write end.
func pipeDevice(t *testing.T) (*Device, int, func()) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	var once sync.Once
	hangup := func() { once.Do(func() { unix.Close(p[1]) }) }
	t.Cleanup(hangup)
	d := &Device{fd: p[0], path: "pipe", buf: make([]byte, eventSize*4)}
	d.dec.query = d.state
	t.Cleanup(func() { d.Close() })
	return d, p[1], hangup
}

func writeEvents(t *testing.T, fd int, events ...rawEvent) {
	t.Helper()
	for _, ev := range events {
		b := make([]byte, eventSize)
		tail := b[eventSize-8:]
		binary.NativeEndian.PutUint16(tail[0:2], ev.Type)
		binary.NativeEndian.PutUint16(tail[2:4], ev.Code)
		binary.NativeEndian.PutUint32(tail[4:8], uint32(ev.Value))
		_, err := unix.Write(fd, b)
		require.NoError(t, err)
	}
}

func TestDeviceRead(t *testing.T) {
	d, w, _ := pipeDevice(t)
	writeEvents(t, w,
		rawEvent{evKey, btnTouch, 1}, rawEvent{evAbs, absX, 320}, rawEvent{evAbs, absY, 240}, syn,
		rawEvent{evKey, btnTouch, 0}, syn,
	)
	ctx := context.Background()
	s, err := d.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, Sample{Pressure: 1, X: 320, Y: 240}, s)
	s, err = d.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, Sample{Pressure: 0, X: 320, Y: 240}, s)
}

func TestDeviceReadCancel(t *testing.T) {
	d, _, _ := pipeDevice(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeviceReadAfterClose(t *testing.T) {
	d, _, _ := pipeDevice(t)
	require.NoError(t, d.Close())
	_, err := d.Read(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, d.Close())
}

func TestDeviceHangup(t *testing.T) {
	d, _, hangup := pipeDevice(t)
	hangup()
	_, err := d.Read(context.Background())
	assert.Error(t, err)
}

func TestDeviceAxesNotEvdev(t *testing.T) {
	d, _, _ := pipeDevice(t)
	_, _, err := d.Axes()
	assert.ErrorIs(t, err, unix.ENOTTY)
}

func TestDeviceDroppedRelease(t *testing.T) {
	d, w, _ := pipeDevice(t)
	writeEvents(t, w,
		rawEvent{evKey, btnTouch, 1}, rawEvent{evAbs, absX, 10}, syn,
		rawEvent{evSyn, synDropped, 0}, syn,
		rawEvent{evAbs, absX, 50}, syn,
	)
	ctx := context.Background()
	var got []Sample
	for i := 0; i < 3; i++ {
		s, err := d.Read(ctx)
		require.NoError(t, err)
		got = append(got, s)
	}
	// A pipe cannot report its state, so contact is taken as lifted.
	assert.Equal(t, []Sample{
		{Pressure: 1, X: 10},
		{Pressure: 0, X: 10},
		{Pressure: 0, X: 50},
	}, got)
}
