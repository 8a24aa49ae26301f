// SPDX-License-Identifier: Unlicense OR MIT

// Package egl owns the display surface and rendering context an
// embedded engine draws into.
package egl

import (
	"errors"
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"flutterpi.org/internal/log"
)

type (
	Display      uintptr
	Config       uintptr
	Context      uintptr
	Surface      uintptr
	NativeWindow uintptr
)

const (
	nilDisplay      Display      = 0
	nilConfig       Config       = 0
	nilContext      Context      = 0
	nilSurface      Surface      = 0
	nilNativeWindow NativeWindow = 0
)

const (
	_EGL_ALPHA_SIZE             = 0x3021
	_EGL_BLUE_SIZE              = 0x3022
	_EGL_GREEN_SIZE             = 0x3023
	_EGL_RED_SIZE               = 0x3024
	_EGL_SURFACE_TYPE           = 0x3033
	_EGL_NONE                   = 0x3038
	_EGL_CONTEXT_CLIENT_VERSION = 0x3098
	_EGL_WINDOW_BIT             = 0x4
)

// Driver is the platform capability a Provider is built on. Handle
// values of zero mean "no object"; boolean results report EGL_TRUE.
type Driver interface {
	// Open prepares the platform display stack.
	Open() error
	GetDisplay() Display
	Initialize(disp Display) bool
	ChooseConfig(disp Display, attribs []int32) (Config, bool)
	CreateContext(disp Display, cfg Config, attribs []int32) Context
	// DisplaySize reports the pixel extent of the native display.
	DisplaySize() (width, height int, err error)
	// CreateNativeWindow creates the compositor element backing the
	// window surface.
	CreateNativeWindow(width, height int) (NativeWindow, error)
	CreateWindowSurface(disp Display, cfg Config, win NativeWindow) Surface
	MakeCurrent(disp Display, draw, read Surface, ctx Context) bool
	SwapBuffers(disp Display, surf Surface) bool
	DestroySurface(disp Display, surf Surface) bool
	DestroyContext(disp Display, ctx Context) bool
	Terminate(disp Display) bool
	// DestroyNativeWindow removes the compositor element and closes the
	// compositor display connection.
	DestroyNativeWindow(win NativeWindow)
	// Close releases the platform display stack.
	Close()
	GetError() int32
	ProcAddress(name string) unsafe.Pointer
}

// SetupError identifies the setup step that invalidated a Provider.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Provider is a window surface and its rendering context. A Provider
// is either valid or invalid; an invalid Provider refuses every
// operation except Release.
//
// Provider methods other than the render callbacks must be called
// from a single goroutine.
type Provider struct {
	d    Driver
	log  *zap.Logger
	open bool
	disp Display
	cfg  Config
	ctx  Context
	win  NativeWindow
	surf Surface

	width, height int
	valid         bool
	err           error
}

// NewProvider runs every setup step on d. The first failing step
// marks the Provider invalid and skips the rest. Release must be
// called in either case.
func NewProvider(d Driver) *Provider {
	p := &Provider{d: d, log: log.Named("egl")}
	if err := p.init(); err != nil {
		p.err = err
		var serr *SetupError
		if errors.As(err, &serr) {
			p.log.Error("display setup failed", log.Stage(serr.Stage), zap.Error(serr.Err))
		}
		return p
	}
	p.valid = true
	return p
}

func (p *Provider) init() error {
	if err := p.d.Open(); err != nil {
		return &SetupError{Stage: "egl.display", Err: err}
	}
	p.open = true
	disp := p.d.GetDisplay()
	if disp == nilDisplay {
		return &SetupError{Stage: "egl.display", Err: fmt.Errorf("eglGetDisplay failed: 0x%x", p.d.GetError())}
	}
	if !p.d.Initialize(disp) {
		return &SetupError{Stage: "egl.display", Err: fmt.Errorf("eglInitialize failed: 0x%x", p.d.GetError())}
	}
	p.disp = disp
	attribs := []int32{
		_EGL_RED_SIZE, 8,
		_EGL_GREEN_SIZE, 8,
		_EGL_BLUE_SIZE, 8,
		_EGL_ALPHA_SIZE, 8,
		_EGL_SURFACE_TYPE, _EGL_WINDOW_BIT,
		_EGL_NONE,
	}
	cfg, ok := p.d.ChooseConfig(disp, attribs)
	if !ok {
		return &SetupError{Stage: "egl.config", Err: fmt.Errorf("eglChooseConfig failed: 0x%x", p.d.GetError())}
	}
	if cfg == nilConfig {
		return &SetupError{Stage: "egl.config", Err: errors.New("eglChooseConfig returned 0 configs")}
	}
	p.cfg = cfg
	ctxAttribs := []int32{
		_EGL_CONTEXT_CLIENT_VERSION, 2,
		_EGL_NONE,
	}
	ctx := p.d.CreateContext(disp, cfg, ctxAttribs)
	if ctx == nilContext {
		return &SetupError{Stage: "egl.context", Err: fmt.Errorf("eglCreateContext failed: 0x%x", p.d.GetError())}
	}
	p.ctx = ctx
	width, height, err := p.d.DisplaySize()
	if err != nil {
		return &SetupError{Stage: "display.size", Err: err}
	}
	if width <= 0 || height <= 0 {
		return &SetupError{Stage: "display.size", Err: fmt.Errorf("invalid display size: %d x %d", width, height)}
	}
	p.width, p.height = width, height
	win, err := p.d.CreateNativeWindow(width, height)
	if err != nil {
		return &SetupError{Stage: "dispmanx", Err: err}
	}
	p.win = win
	surf := p.d.CreateWindowSurface(disp, cfg, win)
	if surf == nilSurface {
		return &SetupError{Stage: "egl.surface", Err: fmt.Errorf("eglCreateWindowSurface failed: 0x%x", p.d.GetError())}
	}
	p.surf = surf
	return nil
}

// Valid reports whether every setup step succeeded.
func (p *Provider) Valid() bool { return p.valid }

// Err returns the setup failure of an invalid Provider.
func (p *Provider) Err() error { return p.err }

// Width is the display width in pixels. Only defined when valid.
func (p *Provider) Width() int { return p.width }

// Height is the display height in pixels. Only defined when valid.
func (p *Provider) Height() int { return p.height }

// MakeCurrent binds the surface and context to the calling thread.
func (p *Provider) MakeCurrent() bool {
	if !p.valid {
		p.log.Error("cannot make an invalid display current")
		return false
	}
	if !p.d.MakeCurrent(p.disp, p.surf, p.surf, p.ctx) {
		p.log.Error("could not make the context current", zap.Int32("egl_error", p.d.GetError()))
		return false
	}
	return true
}

// ClearCurrent unbinds any surface and context from the calling thread.
func (p *Provider) ClearCurrent() bool {
	if !p.valid {
		p.log.Error("cannot clear an invalid display")
		return false
	}
	if !p.d.MakeCurrent(p.disp, nilSurface, nilSurface, nilContext) {
		p.log.Error("could not clear the current context", zap.Int32("egl_error", p.d.GetError()))
		return false
	}
	return true
}

// Present swaps the back buffer onto the display.
func (p *Provider) Present() bool {
	if !p.valid {
		p.log.Error("cannot present an invalid display")
		return false
	}
	if !p.d.SwapBuffers(p.disp, p.surf) {
		p.log.Error("could not swap buffers", zap.Int32("egl_error", p.d.GetError()))
		return false
	}
	return true
}

// OnscreenTarget returns the default framebuffer.
func (p *Provider) OnscreenTarget() uint32 {
	return 0
}

// ResolveSymbol looks up a rendering API entry point, returning nil
// when it cannot be found.
func (p *Provider) ResolveSymbol(name string) unsafe.Pointer {
	if name == "" {
		return nil
	}
	return p.d.ProcAddress(name)
}

// Release tears down every acquired resource in reverse order of
// acquisition. Steps for resources that were never acquired are
// skipped. Release is safe to call more than once.
func (p *Provider) Release() {
	p.valid = false
	if p.surf != nilSurface {
		p.d.DestroySurface(p.disp, p.surf)
		p.surf = nilSurface
	}
	if p.ctx != nilContext {
		p.d.DestroyContext(p.disp, p.ctx)
		p.ctx = nilContext
	}
	if p.disp != nilDisplay {
		p.d.Terminate(p.disp)
		p.disp = nilDisplay
	}
	if p.win != nilNativeWindow {
		p.d.DestroyNativeWindow(p.win)
		p.win = nilNativeWindow
	}
	if p.open {
		p.d.Close()
		p.open = false
	}
}
