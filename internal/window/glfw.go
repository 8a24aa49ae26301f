// SPDX-License-Identifier: Unlicense OR MIT

//go:build glfw

package window

import (
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type glfwToolkit struct{}

type glfwWindow struct {
	w       *glfw.Window
	handler Handler
}

// NewToolkit returns the GLFW toolkit. Its methods must be called
// from the main thread.
func NewToolkit() Toolkit {
	return glfwToolkit{}
}

func (glfwToolkit) Init() error { return glfw.Init() }

func (glfwToolkit) Terminate() { glfw.Terminate() }

func (glfwToolkit) CreateWindow(width, height int, title string) (NativeWindow, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 0)
	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, err
	}
	gw := &glfwWindow{w: w}
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if gw.handler != nil {
			gw.handler.Resize(width, height)
		}
	})
	w.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		gw.pointer(action == glfw.Press)
	})
	w.SetCursorPosCallback(func(w *glfw.Window, _, _ float64) {
		gw.pointer(w.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press)
	})
	return gw, nil
}

func (glfwToolkit) WaitEvents(timeout time.Duration) {
	glfw.WaitEventsTimeout(timeout.Seconds())
}

func (glfwToolkit) DetachCurrentContext() { glfw.DetachCurrentContext() }

func (glfwToolkit) ProcAddress(name string) unsafe.Pointer {
	return glfw.GetProcAddress(name)
}

// pointer reports the cursor in framebuffer pixels.
func (gw *glfwWindow) pointer(pressed bool) {
	if gw.handler == nil {
		return
	}
	x, y := gw.w.GetCursorPos()
	ww, wh := gw.w.GetSize()
	fw, fh := gw.w.GetFramebufferSize()
	if ww > 0 && wh > 0 {
		x *= float64(fw) / float64(ww)
		y *= float64(fh) / float64(wh)
	}
	gw.handler.Pointer(pressed, x, y)
}

func (gw *glfwWindow) MakeContextCurrent() { gw.w.MakeContextCurrent() }
func (gw *glfwWindow) SwapBuffers()        { gw.w.SwapBuffers() }
func (gw *glfwWindow) ShouldClose() bool   { return gw.w.ShouldClose() }

func (gw *glfwWindow) FramebufferSize() (int, int) {
	return gw.w.GetFramebufferSize()
}

func (gw *glfwWindow) ContentScale() float64 {
	sx, _ := gw.w.GetContentScale()
	return float64(sx)
}

func (gw *glfwWindow) SetHandler(h Handler) { gw.handler = h }

func (gw *glfwWindow) Destroy() {
	gw.handler = nil
	gw.w.Destroy()
}
