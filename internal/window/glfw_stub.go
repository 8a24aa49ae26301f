// SPDX-License-Identifier: Unlicense OR MIT

//go:build !glfw

package window

import (
	"errors"
	"time"
	"unsafe"
)

type noToolkit struct{}

var errNoToolkit = errors.New("window: built without the glfw tag")

// NewToolkit returns a toolkit that fails to initialize.
func NewToolkit() Toolkit { return noToolkit{} }

func (noToolkit) Init() error { return errNoToolkit }
func (noToolkit) Terminate()  {}

func (noToolkit) CreateWindow(int, int, string) (NativeWindow, error) {
	return nil, errNoToolkit
}

func (noToolkit) WaitEvents(time.Duration)         {}
func (noToolkit) DetachCurrentContext()            {}
func (noToolkit) ProcAddress(string) unsafe.Pointer { return nil }
