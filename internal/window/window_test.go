// SPDX-License-Identifier: Unlicense OR MIT

package window

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flutterpi.org/internal/engine"
	"flutterpi.org/io/pointer"
)

type fakeToolkit struct {
	initErr    error
	createErr  error
	inits      int
	terminates int
	detaches   int
	waits      int
	windows    []*fakeWindow
	// closeAfter makes the current window request closing after that
	// many WaitEvents calls.
	closeAfter int
	calls      *[]string
}

func (tk *fakeToolkit) record(call string) {
	if tk.calls != nil {
		*tk.calls = append(*tk.calls, call)
	}
}

func (tk *fakeToolkit) Init() error {
	tk.inits++
	return tk.initErr
}

func (tk *fakeToolkit) Terminate() {
	tk.terminates++
	tk.record("terminate")
}

func (tk *fakeToolkit) CreateWindow(w, h int, title string) (NativeWindow, error) {
	if tk.createErr != nil {
		return nil, tk.createErr
	}
	win := &fakeWindow{tk: tk, width: w, height: h, title: title, scale: 2}
	tk.windows = append(tk.windows, win)
	return win, nil
}

func (tk *fakeToolkit) WaitEvents(time.Duration) {
	tk.waits++
	if tk.waits >= tk.closeAfter {
		tk.windows[len(tk.windows)-1].closing = true
	}
}

func (tk *fakeToolkit) DetachCurrentContext() { tk.detaches++ }

func (tk *fakeToolkit) ProcAddress(name string) unsafe.Pointer {
	if name == "glClear" {
		return unsafe.Pointer(tk)
	}
	return nil
}

type fakeWindow struct {
	tk        *fakeToolkit
	width     int
	height    int
	title     string
	scale     float64
	closing   bool
	destroyed bool
	current   int
	swaps     int
	handler   Handler
	swapPanic bool
}

func (w *fakeWindow) MakeContextCurrent() { w.current++ }

func (w *fakeWindow) SwapBuffers() {
	if w.swapPanic {
		panic("swap failed")
	}
	w.swaps++
}

func (w *fakeWindow) ShouldClose() bool           { return w.closing }
func (w *fakeWindow) FramebufferSize() (int, int) { return w.width, w.height }
func (w *fakeWindow) ContentScale() float64       { return w.scale }
func (w *fakeWindow) SetHandler(h Handler)        { w.handler = h }

func (w *fakeWindow) Destroy() {
	w.destroyed = true
	w.tk.record("destroy")
}

type fakeRunner struct {
	runErr   error
	cfg      engine.Config
	delegate engine.RenderDelegate
	inst     *fakeInstance
}

func (r *fakeRunner) Run(cfg engine.Config, d engine.RenderDelegate) (engine.Instance, error) {
	if r.runErr != nil {
		return nil, r.runErr
	}
	r.cfg = cfg
	r.delegate = d
	r.inst = &fakeInstance{messages: make(map[string][]byte)}
	return r.inst, nil
}

type fakeInstance struct {
	metrics   []engine.WindowMetrics
	events    []pointer.Event
	messages  map[string][]byte
	shutdowns int
	flushes   int
}

func (i *fakeInstance) SendWindowMetrics(m engine.WindowMetrics) error {
	i.metrics = append(i.metrics, m)
	return nil
}

func (i *fakeInstance) SendPointerEvents(events ...pointer.Event) error {
	i.events = append(i.events, events...)
	return nil
}

func (i *fakeInstance) SendPlatformMessage(channel string, data []byte) error {
	i.messages[channel] = data
	return nil
}

func (i *fakeInstance) ProcessEvents() error {
	i.flushes++
	return nil
}

func (i *fakeInstance) Shutdown() error {
	i.shutdowns++
	return nil
}

func testBundle(t *testing.T) (assets, icu string) {
	t.Helper()
	dir := t.TempDir()
	assets = filepath.Join(dir, "flutter_assets")
	require.NoError(t, os.Mkdir(assets, 0o755))
	icu = filepath.Join(dir, "icudtl.dat")
	require.NoError(t, os.WriteFile(icu, []byte("icu"), 0o644))
	return assets, icu
}

func newTestController(t *testing.T, tk *fakeToolkit, r *fakeRunner) (*Controller, string) {
	t.Helper()
	assets, icu := testBundle(t)
	c := NewController(NewRuntime(tk), r, icu)
	t.Cleanup(c.Close)
	return c, assets
}

func TestRuntimeExclusive(t *testing.T) {
	tk := &fakeToolkit{}
	a := NewRuntime(tk)
	require.NoError(t, a.Acquire())

	b := NewRuntime(tk)
	assert.ErrorIs(t, b.Acquire(), ErrRuntimeAcquired)
	assert.Equal(t, 1, tk.inits)

	a.Release()
	a.Release()
	assert.Equal(t, 1, tk.terminates)

	require.NoError(t, b.Acquire())
	b.Release()
}

func TestRuntimeInitFailure(t *testing.T) {
	tk := &fakeToolkit{initErr: errors.New("no display")}
	rt := NewRuntime(tk)
	assert.Error(t, rt.Acquire())
	rt.Release()
	assert.Equal(t, 0, tk.terminates)

	// A failed init leaves the runtime available.
	tk.initErr = nil
	require.NoError(t, rt.Acquire())
	rt.Release()
}

func TestCreateWindow(t *testing.T) {
	tk := &fakeToolkit{}
	r := &fakeRunner{}
	c, assets := newTestController(t, tk, r)

	require.NoError(t, c.CreateWindow(640, 480, "demo", assets, []string{"--verbose-logging"}))
	require.Len(t, tk.windows, 1)
	win := tk.windows[0]
	assert.Equal(t, "demo", win.title)
	assert.Equal(t, assets, r.cfg.AssetsPath)
	assert.Equal(t, []string{"--verbose-logging"}, r.cfg.Args)
	assert.Equal(t, c, win.handler)
	assert.Equal(t, []engine.WindowMetrics{{Width: 640, Height: 480, PixelRatio: 2}}, r.inst.metrics)
}

func TestSecondWindowRejected(t *testing.T) {
	tk := &fakeToolkit{}
	r := &fakeRunner{}
	c, assets := newTestController(t, tk, r)

	require.NoError(t, c.CreateWindow(640, 480, "first", assets, nil))
	first := r.inst
	err := c.CreateWindow(320, 240, "second", assets, nil)
	assert.ErrorIs(t, err, ErrWindowExists)
	assert.Len(t, tk.windows, 1)
	assert.False(t, tk.windows[0].destroyed)
	assert.Same(t, first, r.inst)
	assert.Equal(t, 0, first.shutdowns)
}

func TestCreateWindowWithoutRuntime(t *testing.T) {
	held := NewRuntime(&fakeToolkit{})
	require.NoError(t, held.Acquire())
	defer held.Release()

	tk := &fakeToolkit{}
	c, assets := newTestController(t, tk, &fakeRunner{})
	assert.ErrorIs(t, c.CreateWindow(640, 480, "demo", assets, nil), ErrInitFailed)
	assert.Empty(t, tk.windows)
	assert.Nil(t, c.PluginRegistrar("p"))

	c.Close()
	assert.Equal(t, 0, tk.terminates)
}

func TestCreateWindowFailures(t *testing.T) {
	t.Run("toolkit", func(t *testing.T) {
		tk := &fakeToolkit{createErr: errors.New("no visual")}
		c, assets := newTestController(t, tk, &fakeRunner{})
		assert.Error(t, c.CreateWindow(640, 480, "demo", assets, nil))
		assert.Nil(t, c.PluginRegistrar("p"))
	})
	t.Run("engine", func(t *testing.T) {
		tk := &fakeToolkit{}
		c, assets := newTestController(t, tk, &fakeRunner{runErr: errors.New("bad aot")})
		assert.Error(t, c.CreateWindow(640, 480, "demo", assets, nil))
		require.Len(t, tk.windows, 1)
		assert.True(t, tk.windows[0].destroyed)
		assert.Nil(t, c.PluginRegistrar("p"))
	})
}

func TestPluginRegistrar(t *testing.T) {
	tk := &fakeToolkit{}
	r := &fakeRunner{}
	c, assets := newTestController(t, tk, r)

	assert.Nil(t, c.PluginRegistrar("text_input"))

	require.NoError(t, c.CreateWindow(640, 480, "demo", assets, nil))
	reg := c.PluginRegistrar("text_input")
	require.NotNil(t, reg)
	assert.Equal(t, "text_input", reg.Name())
	assert.Equal(t, NativeWindow(tk.windows[0]), reg.Window())

	require.NoError(t, reg.Send("flutter/textinput", []byte("{}")))
	assert.Equal(t, []byte("{}"), r.inst.messages["flutter/textinput"])

	tk.closeAfter = 1
	c.RunEventLoop()
	assert.Nil(t, reg.Window())
	assert.ErrorIs(t, reg.Send("flutter/textinput", nil), engine.ErrNotRunning)
}

func TestRunEventLoop(t *testing.T) {
	tk := &fakeToolkit{closeAfter: 3}
	r := &fakeRunner{}
	c, assets := newTestController(t, tk, r)

	require.NoError(t, c.CreateWindow(640, 480, "demo", assets, nil))
	c.RunEventLoop()
	assert.Equal(t, 3, tk.waits)
	assert.Equal(t, 3, r.inst.flushes)
	assert.True(t, tk.windows[0].destroyed)
	assert.Equal(t, 1, r.inst.shutdowns)
	assert.Nil(t, c.PluginRegistrar("p"))

	// The controller can host a new window afterwards.
	tk.waits = 0
	require.NoError(t, c.CreateWindow(640, 480, "again", assets, nil))
	assert.Len(t, tk.windows, 2)
}

func TestRunEventLoopWithoutWindow(t *testing.T) {
	tk := &fakeToolkit{}
	c, _ := newTestController(t, tk, &fakeRunner{})
	c.RunEventLoop()
	assert.Equal(t, 0, tk.waits)
}

func TestCloseOrder(t *testing.T) {
	var calls []string
	tk := &fakeToolkit{calls: &calls}
	r := &fakeRunner{}
	c, assets := newTestController(t, tk, r)

	require.NoError(t, c.CreateWindow(640, 480, "demo", assets, nil))
	c.Close()
	c.Close()
	assert.Equal(t, []string{"destroy", "terminate"}, calls)
	assert.Equal(t, 1, r.inst.shutdowns)
}

func TestWindowInput(t *testing.T) {
	tk := &fakeToolkit{}
	r := &fakeRunner{}
	c, assets := newTestController(t, tk, r)
	require.NoError(t, c.CreateWindow(640, 480, "demo", assets, nil))
	h := tk.windows[0].handler

	h.Pointer(false, 1, 1)
	h.Pointer(true, 10, 20)
	h.Pointer(true, 11, 21)
	h.Pointer(false, 11, 21)
	h.Resize(1280, 960)
	h.Resize(0, 0)

	var phases []pointer.Phase
	for _, e := range r.inst.events {
		phases = append(phases, e.Phase)
	}
	assert.Equal(t, []pointer.Phase{pointer.Down, pointer.Move, pointer.Up}, phases)
	assert.Equal(t, 10.0, r.inst.events[0].X)
	assert.Equal(t, 20.0, r.inst.events[0].Y)
	require.Len(t, r.inst.metrics, 2)
	assert.Equal(t, engine.WindowMetrics{Width: 1280, Height: 960, PixelRatio: 2}, r.inst.metrics[1])
}

func TestDelegate(t *testing.T) {
	tk := &fakeToolkit{}
	r := &fakeRunner{}
	c, assets := newTestController(t, tk, r)
	require.NoError(t, c.CreateWindow(640, 480, "demo", assets, nil))
	d := r.delegate
	win := tk.windows[0]

	assert.True(t, d.MakeCurrent())
	assert.Equal(t, 1, win.current)
	assert.True(t, d.ClearCurrent())
	assert.Equal(t, 1, tk.detaches)
	assert.True(t, d.Present())
	assert.Equal(t, 1, win.swaps)
	assert.Equal(t, uint32(0), d.OnscreenTarget())
	assert.NotNil(t, d.ResolveSymbol("glClear"))
	assert.Nil(t, d.ResolveSymbol("glMissing"))
	assert.Nil(t, d.ResolveSymbol(""))

	win.swapPanic = true
	assert.False(t, d.Present())
}
