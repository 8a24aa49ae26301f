// SPDX-License-Identifier: Unlicense OR MIT

// Package window runs an embedded engine inside a native desktop
// window.
package window

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"flutterpi.org/internal/engine"
	"flutterpi.org/internal/input"
	"flutterpi.org/internal/log"
)

// Toolkit is the process-wide native window system.
type Toolkit interface {
	Init() error
	Terminate()
	CreateWindow(width, height int, title string) (NativeWindow, error)
	// WaitEvents processes pending window events, blocking for at
	// most timeout.
	WaitEvents(timeout time.Duration)
	// DetachCurrentContext unbinds the calling thread's context.
	DetachCurrentContext()
	ProcAddress(name string) unsafe.Pointer
}

// NativeWindow is a toolkit window with its own rendering context.
type NativeWindow interface {
	MakeContextCurrent()
	SwapBuffers()
	ShouldClose() bool
	// FramebufferSize is the size of the drawable in pixels.
	FramebufferSize() (width, height int)
	ContentScale() float64
	SetHandler(h Handler)
	Destroy()
}

// Handler receives window input.
type Handler interface {
	// Resize reports a new framebuffer size in pixels.
	Resize(width, height int)
	// Pointer reports the primary button state at framebuffer
	// position (x, y).
	Pointer(pressed bool, x, y float64)
}

var (
	// ErrRuntimeAcquired is returned when the window runtime is already
	// held in this process.
	ErrRuntimeAcquired = errors.New("window: runtime already acquired")
	// ErrInitFailed is returned by controllers whose runtime could not
	// be acquired.
	ErrInitFailed = errors.New("window: runtime initialization failed")
	// ErrWindowExists is returned when a controller already has a window.
	ErrWindowExists = errors.New("window: only one window can exist at a time")
)

// frameWait bounds one event loop iteration.
const frameWait = 16 * time.Millisecond

// The toolkit may be initialized once at a time per process.
var runtimeHeld atomic.Bool

// Runtime brackets the process-wide toolkit initialization.
type Runtime struct {
	tk   Toolkit
	held bool
}

// NewRuntime returns an unacquired runtime for tk.
func NewRuntime(tk Toolkit) *Runtime {
	return &Runtime{tk: tk}
}

// Acquire initializes the toolkit. It fails with ErrRuntimeAcquired
// while any runtime in the process is held.
func (r *Runtime) Acquire() error {
	if !runtimeHeld.CompareAndSwap(false, true) {
		return ErrRuntimeAcquired
	}
	if err := r.tk.Init(); err != nil {
		runtimeHeld.Store(false)
		return fmt.Errorf("window: init: %w", err)
	}
	r.held = true
	return nil
}

// Release terminates the toolkit if r holds it.
func (r *Runtime) Release() {
	if !r.held {
		return
	}
	r.tk.Terminate()
	r.held = false
	runtimeHeld.Store(false)
}

// Toolkit returns the toolkit of the runtime.
func (r *Runtime) Toolkit() Toolkit { return r.tk }

// Controller owns one native window and the engine session drawing
// into it. A Controller is not safe for concurrent use.
type Controller struct {
	rt      *Runtime
	runner  engine.Runner
	icuData string
	initOK  bool
	log     *zap.Logger

	win     NativeWindow
	session *engine.Session
	tracker *input.Tracker
}

// NewController acquires rt for the lifetime of the controller. When
// acquisition fails the controller refuses to create windows.
func NewController(rt *Runtime, runner engine.Runner, icuDataPath string) *Controller {
	c := &Controller{
		rt:      rt,
		runner:  runner,
		icuData: icuDataPath,
		log:     log.Named("window"),
	}
	if err := rt.Acquire(); err != nil {
		c.log.Error("could not initialize the window runtime", log.Stage("window.create"), zap.Error(err))
		return c
	}
	c.initOK = true
	return c
}

// CreateWindow opens a window and starts an engine drawing into it.
func (c *Controller) CreateWindow(width, height int, title, assetsPath string, args []string) error {
	if !c.initOK {
		c.log.Error("could not create window; runtime initialization failed", log.Stage("window.create"))
		return ErrInitFailed
	}
	if c.win != nil {
		c.log.Error("only one window can exist at a time", log.Stage("window.create"))
		return ErrWindowExists
	}
	tk := c.rt.Toolkit()
	win, err := tk.CreateWindow(width, height, title)
	if err != nil {
		c.log.Error("failed to create window", log.Stage("window.create"), zap.Error(err))
		return fmt.Errorf("window: create: %w", err)
	}
	session := engine.NewSession(c.runner)
	cfg := engine.Config{
		AssetsPath:  assetsPath,
		ICUDataPath: c.icuData,
		Args:        args,
	}
	if err := session.Start(cfg, &delegate{tk: tk, win: win}); err != nil {
		win.Destroy()
		return err
	}
	c.win = win
	c.session = session
	c.tracker = input.NewTracker()
	win.SetHandler(c)
	fw, fh := win.FramebufferSize()
	c.Resize(fw, fh)
	return nil
}

// Resize implements Handler.
func (c *Controller) Resize(width, height int) {
	if c.session == nil || width <= 0 || height <= 0 {
		return
	}
	c.session.SetWindowMetrics(engine.WindowMetrics{
		Width:      width,
		Height:     height,
		PixelRatio: c.win.ContentScale(),
	})
}

// Pointer implements Handler.
func (c *Controller) Pointer(pressed bool, x, y float64) {
	if c.session == nil {
		return
	}
	s := input.Sample{X: int(x), Y: int(y)}
	if pressed {
		s.Pressure = 1
	}
	if e, ok := c.tracker.Translate(s); ok {
		c.session.SendPointerEvent(e)
	}
}

// PluginRegistrar returns the registrar for the named plugin, or nil
// when no window exists.
func (c *Controller) PluginRegistrar(name string) *Registrar {
	if c.win == nil {
		c.log.Error("cannot get plugin registrar without a window; call CreateWindow first", zap.String("plugin", name))
		return nil
	}
	return &Registrar{name: name, c: c, session: c.session}
}

// RunEventLoop processes window events and pending engine tasks
// until the window is closed, then releases the window and its
// engine. The controller may create a new window afterwards.
func (c *Controller) RunEventLoop() {
	if c.win != nil {
		tk := c.rt.Toolkit()
		for !c.win.ShouldClose() {
			tk.WaitEvents(frameWait)
			c.session.ProcessEvents()
		}
	}
	c.destroyWindow()
}

func (c *Controller) destroyWindow() {
	if c.win == nil {
		return
	}
	c.session.Shutdown()
	c.win.Destroy()
	c.win = nil
	c.session = nil
	c.tracker = nil
}

// Close destroys any remaining window and releases the runtime.
func (c *Controller) Close() {
	c.destroyWindow()
	if c.initOK {
		c.rt.Release()
		c.initOK = false
	}
}

// Registrar is the extension point of one plugin in a window.
type Registrar struct {
	name    string
	c       *Controller
	session *engine.Session
}

// Name returns the plugin name.
func (r *Registrar) Name() string { return r.name }

// Window returns the native window, or nil once it has been
// destroyed.
func (r *Registrar) Window() NativeWindow {
	if r.c.session != r.session {
		return nil
	}
	return r.c.win
}

// Send delivers data to the engine on channel.
func (r *Registrar) Send(channel string, data []byte) error {
	return r.session.SendPlatformMessage(channel, data)
}

// delegate renders into a toolkit window.
type delegate struct {
	tk  Toolkit
	win NativeWindow
}

func (d *delegate) MakeCurrent() bool  { return try(d.win.MakeContextCurrent) }
func (d *delegate) ClearCurrent() bool { return try(d.tk.DetachCurrentContext) }
func (d *delegate) Present() bool      { return try(d.win.SwapBuffers) }

func (d *delegate) OnscreenTarget() uint32 { return 0 }

func (d *delegate) ResolveSymbol(name string) unsafe.Pointer {
	if name == "" {
		return nil
	}
	var addr unsafe.Pointer
	try(func() { addr = d.tk.ProcAddress(name) })
	return addr
}

// try runs f, turning toolkit panics into a false result.
func try(f func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Named("window").Warn("toolkit call failed", zap.Any("panic", r))
			ok = false
		}
	}()
	f()
	return true
}
