// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux

package input

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"
)

// eventSize is sizeof(struct input_event) on this platform.
var eventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// pollTimeout bounds how long Read blocks before checking its context.
const pollTimeout = 100 // ms

const (
	// _IOW('E', 0x90, int)
	_EVIOCGRAB = 0x40044590
	// _IOR('E', 0x40 + abs, struct input_absinfo)
	_EVIOCGABS = 0x80184540
	// _IOR('E', 0x18, keyBits)
	_EVIOCGKEY = 0x80604518

	// keyBits is (KEY_MAX+7)/8.
	keyBits = 96
)

// absInfo is struct input_absinfo.
type absInfo struct {
	Value, Minimum, Maximum, Fuzz, Flat, Resolution int32
}

// Device is an evdev touchscreen. It reports Pressure 1 while the
// screen is touched and 0 otherwise.
type Device struct {
	fd   int
	path string
	dec  decoder
	buf  []byte
	off  int
	n    int
}

// OpenDevice opens the evdev node at path. When grab is set, the
// device is grabbed so no other client receives its events.
func OpenDevice(path string, grab bool) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("input: open %s: %w", path, err)
	}
	if grab {
		if err := unix.IoctlSetInt(fd, _EVIOCGRAB, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("input: grab %s: %w", path, err)
		}
	}
	d := &Device{
		fd:   fd,
		path: path,
		buf:  make([]byte, eventSize*64),
	}
	d.dec.query = d.state
	return d, nil
}

// Read blocks until the device completes a sample or ctx is done.
func (d *Device) Read(ctx context.Context) (Sample, error) {
	for {
		if d.fd < 0 {
			return Sample{}, ErrClosed
		}
		for d.off+eventSize <= d.n {
			ev := decodeEvent(d.buf[d.off : d.off+eventSize])
			d.off += eventSize
			if s, ok := d.dec.feed(ev); ok {
				return s, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return Sample{}, fmt.Errorf("poll %s: %w", d.path, err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return Sample{}, fmt.Errorf("%s: device error (revents 0x%x)", d.path, fds[0].Revents)
		}
		n, err = unix.Read(d.fd, d.buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return Sample{}, fmt.Errorf("read %s: %w", d.path, err)
		}
		if n == 0 {
			return Sample{}, io.EOF
		}
		d.off, d.n = 0, n-n%eventSize
	}
}

func decodeEvent(b []byte) rawEvent {
	b = b[len(b)-8:]
	return rawEvent{
		Type:  binary.NativeEndian.Uint16(b[0:2]),
		Code:  binary.NativeEndian.Uint16(b[2:4]),
		Value: int32(binary.NativeEndian.Uint32(b[4:8])),
	}
}

// Axes queries the X and Y ranges of the device.
func (d *Device) Axes() (x, y Axis, err error) {
	if x, err = d.axis(absX); err != nil {
		return Axis{}, Axis{}, err
	}
	if y, err = d.axis(absY); err != nil {
		return Axis{}, Axis{}, err
	}
	return x, y, nil
}

func (d *Device) axis(code uintptr) (Axis, error) {
	info, err := d.absInfo(code)
	if err != nil {
		return Axis{}, err
	}
	return Axis{Min: int(info.Minimum), Max: int(info.Maximum)}, nil
}

func (d *Device) absInfo(code uintptr) (absInfo, error) {
	var info absInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), _EVIOCGABS+code, uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return absInfo{}, fmt.Errorf("input: query axis 0x%x of %s: %w", code, d.path, errno)
	}
	return info, nil
}

// state reads the current touch key and axis values.
func (d *Device) state() (deviceState, error) {
	var keys [keyBits]byte
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), _EVIOCGKEY, uintptr(unsafe.Pointer(&keys[0])))
	if errno != 0 {
		return deviceState{}, fmt.Errorf("input: query keys of %s: %w", d.path, errno)
	}
	x, err := d.absInfo(absX)
	if err != nil {
		return deviceState{}, err
	}
	y, err := d.absInfo(absY)
	if err != nil {
		return deviceState{}, err
	}
	st := deviceState{
		Touch: keys[btnTouch/8]&(1<<(btnTouch%8)) != 0,
		X:     int(x.Value),
		Y:     int(y.Value),
	}
	// Devices without a pressure axis report contact through the key.
	if p, err := d.absInfo(absPressure); err == nil {
		st.Pressure = int(p.Value)
	}
	return st, nil
}

// Close closes the device. Further reads return ErrClosed.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
