// SPDX-License-Identifier: Unlicense OR MIT

//go:build !(linux && cgo && rpi)

package egl

import (
	"errors"
	"unsafe"
)

var errNoDriver = errors.New("no display driver in this build (build with -tags rpi)")

type noDriver struct{}

// NewDriver returns the display driver for this build.
func NewDriver() Driver {
	return noDriver{}
}

func (noDriver) Open() error                                      { return errNoDriver }
func (noDriver) GetDisplay() Display                              { return nilDisplay }
func (noDriver) Initialize(Display) bool                          { return false }
func (noDriver) ChooseConfig(Display, []int32) (Config, bool)     { return nilConfig, false }
func (noDriver) CreateContext(Display, Config, []int32) Context   { return nilContext }
func (noDriver) DisplaySize() (int, int, error)                   { return 0, 0, errNoDriver }
func (noDriver) CreateNativeWindow(int, int) (NativeWindow, error) { return nilNativeWindow, errNoDriver }
func (noDriver) CreateWindowSurface(Display, Config, NativeWindow) Surface {
	return nilSurface
}
func (noDriver) MakeCurrent(Display, Surface, Surface, Context) bool { return false }
func (noDriver) SwapBuffers(Display, Surface) bool                   { return false }
func (noDriver) DestroySurface(Display, Surface) bool                { return false }
func (noDriver) DestroyContext(Display, Context) bool                { return false }
func (noDriver) Terminate(Display) bool                              { return false }
func (noDriver) DestroyNativeWindow(NativeWindow)                    {}
func (noDriver) Close()                                              {}
func (noDriver) GetError() int32                                     { return 0 }
func (noDriver) ProcAddress(string) unsafe.Pointer                   { return nil }
