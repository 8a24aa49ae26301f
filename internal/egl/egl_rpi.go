// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux && cgo && rpi

package egl

/*
#cgo CFLAGS: -I/opt/vc/include -I/opt/vc/include/interface/vcos/pthreads -I/opt/vc/include/interface/vmcs_host/linux
#cgo LDFLAGS: -L/opt/vc/lib -lbrcmEGL -lbrcmGLESv2 -lbcm_host -lvcos -lvchiq_arm -ldl

#define _GNU_SOURCE
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>
#include <bcm_host.h>
#include <EGL/egl.h>

static uintptr_t flutterpi_get_display(void) {
	return (uintptr_t)eglGetDisplay(EGL_DEFAULT_DISPLAY);
}

static int flutterpi_initialize(uintptr_t disp) {
	return eglInitialize((EGLDisplay)disp, NULL, NULL) == EGL_TRUE;
}

static int flutterpi_choose_config(uintptr_t disp, const EGLint *attribs, uintptr_t *cfg) {
	EGLConfig config = NULL;
	EGLint n = 0;
	if (eglChooseConfig((EGLDisplay)disp, attribs, &config, 1, &n) != EGL_TRUE) {
		return 0;
	}
	*cfg = n > 0 ? (uintptr_t)config : 0;
	return 1;
}

static uintptr_t flutterpi_create_context(uintptr_t disp, uintptr_t cfg, const EGLint *attribs) {
	return (uintptr_t)eglCreateContext((EGLDisplay)disp, (EGLConfig)cfg, EGL_NO_CONTEXT, attribs);
}

static uintptr_t flutterpi_create_window_surface(uintptr_t disp, uintptr_t cfg, uintptr_t win) {
	return (uintptr_t)eglCreateWindowSurface((EGLDisplay)disp, (EGLConfig)cfg, (EGLNativeWindowType)win, NULL);
}

static int flutterpi_make_current(uintptr_t disp, uintptr_t draw, uintptr_t read, uintptr_t ctx) {
	return eglMakeCurrent((EGLDisplay)disp, (EGLSurface)draw, (EGLSurface)read, (EGLContext)ctx) == EGL_TRUE;
}

static int flutterpi_swap_buffers(uintptr_t disp, uintptr_t surf) {
	return eglSwapBuffers((EGLDisplay)disp, (EGLSurface)surf) == EGL_TRUE;
}

static int flutterpi_destroy_surface(uintptr_t disp, uintptr_t surf) {
	return eglDestroySurface((EGLDisplay)disp, (EGLSurface)surf) == EGL_TRUE;
}

static int flutterpi_destroy_context(uintptr_t disp, uintptr_t ctx) {
	return eglDestroyContext((EGLDisplay)disp, (EGLContext)ctx) == EGL_TRUE;
}

static int flutterpi_terminate(uintptr_t disp) {
	return eglTerminate((EGLDisplay)disp) == EGL_TRUE;
}

typedef struct {
	DISPMANX_DISPLAY_HANDLE_T display;
	DISPMANX_ELEMENT_HANDLE_T element;
	EGL_DISPMANX_WINDOW_T window;
} flutterpi_native_window;

static flutterpi_native_window *flutterpi_create_native_window(int32_t width, int32_t height) {
	DISPMANX_DISPLAY_HANDLE_T display = vc_dispmanx_display_open(0);
	if (display == DISPMANX_NO_HANDLE) {
		return NULL;
	}
	DISPMANX_UPDATE_HANDLE_T update = vc_dispmanx_update_start(0);
	if (update == DISPMANX_NO_HANDLE) {
		vc_dispmanx_display_close(display);
		return NULL;
	}
	VC_RECT_T dst = {.x = 0, .y = 0, .width = width, .height = height};
	VC_RECT_T src = {.x = 0, .y = 0, .width = width << 16, .height = height << 16};
	DISPMANX_ELEMENT_HANDLE_T element = vc_dispmanx_element_add(
		update, display, 0, &dst, 0, &src, DISPMANX_PROTECTION_NONE, 0, 0, DISPMANX_NO_ROTATE);
	vc_dispmanx_update_submit_sync(update);
	if (element == DISPMANX_NO_HANDLE) {
		vc_dispmanx_display_close(display);
		return NULL;
	}
	flutterpi_native_window *w = calloc(1, sizeof(*w));
	w->display = display;
	w->element = element;
	w->window.element = element;
	w->window.width = width;
	w->window.height = height;
	return w;
}

static void flutterpi_destroy_native_window(flutterpi_native_window *w) {
	DISPMANX_UPDATE_HANDLE_T update = vc_dispmanx_update_start(0);
	if (update != DISPMANX_NO_HANDLE) {
		vc_dispmanx_element_remove(update, w->element);
		vc_dispmanx_update_submit_sync(update);
	}
	vc_dispmanx_display_close(w->display);
	free(w);
}

static uintptr_t flutterpi_egl_window(flutterpi_native_window *w) {
	return (uintptr_t)&w->window;
}

static void *flutterpi_proc_address(const char *name) {
	void *addr = dlsym(RTLD_DEFAULT, name);
	if (addr == NULL) {
		addr = (void *)eglGetProcAddress(name);
	}
	return addr;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// rpiDriver drives the Broadcom EGL implementation and the dispmanx
// compositor of a Raspberry Pi.
type rpiDriver struct {
	windows map[NativeWindow]*C.flutterpi_native_window
}

// NewDriver returns the display driver for this build.
func NewDriver() Driver {
	return &rpiDriver{windows: make(map[NativeWindow]*C.flutterpi_native_window)}
}

func (d *rpiDriver) Open() error {
	C.bcm_host_init()
	return nil
}

func (d *rpiDriver) GetDisplay() Display {
	return Display(C.flutterpi_get_display())
}

func (d *rpiDriver) Initialize(disp Display) bool {
	return C.flutterpi_initialize(C.uintptr_t(disp)) != 0
}

func (d *rpiDriver) ChooseConfig(disp Display, attribs []int32) (Config, bool) {
	var cfg C.uintptr_t
	a := (*C.EGLint)(unsafe.Pointer(&attribs[0]))
	ok := C.flutterpi_choose_config(C.uintptr_t(disp), a, &cfg) != 0
	return Config(cfg), ok
}

func (d *rpiDriver) CreateContext(disp Display, cfg Config, attribs []int32) Context {
	a := (*C.EGLint)(unsafe.Pointer(&attribs[0]))
	return Context(C.flutterpi_create_context(C.uintptr_t(disp), C.uintptr_t(cfg), a))
}

func (d *rpiDriver) DisplaySize() (int, int, error) {
	var w, h C.uint32_t
	if C.graphics_get_display_size(0, &w, &h) < 0 {
		return 0, 0, errors.New("graphics_get_display_size failed")
	}
	return int(w), int(h), nil
}

func (d *rpiDriver) CreateNativeWindow(width, height int) (NativeWindow, error) {
	w := C.flutterpi_create_native_window(C.int32_t(width), C.int32_t(height))
	if w == nil {
		return nilNativeWindow, fmt.Errorf("could not add a %dx%d dispmanx element", width, height)
	}
	win := NativeWindow(C.flutterpi_egl_window(w))
	d.windows[win] = w
	return win, nil
}

func (d *rpiDriver) CreateWindowSurface(disp Display, cfg Config, win NativeWindow) Surface {
	return Surface(C.flutterpi_create_window_surface(C.uintptr_t(disp), C.uintptr_t(cfg), C.uintptr_t(win)))
}

func (d *rpiDriver) MakeCurrent(disp Display, draw, read Surface, ctx Context) bool {
	return C.flutterpi_make_current(C.uintptr_t(disp), C.uintptr_t(draw), C.uintptr_t(read), C.uintptr_t(ctx)) != 0
}

func (d *rpiDriver) SwapBuffers(disp Display, surf Surface) bool {
	return C.flutterpi_swap_buffers(C.uintptr_t(disp), C.uintptr_t(surf)) != 0
}

func (d *rpiDriver) DestroySurface(disp Display, surf Surface) bool {
	return C.flutterpi_destroy_surface(C.uintptr_t(disp), C.uintptr_t(surf)) != 0
}

func (d *rpiDriver) DestroyContext(disp Display, ctx Context) bool {
	return C.flutterpi_destroy_context(C.uintptr_t(disp), C.uintptr_t(ctx)) != 0
}

func (d *rpiDriver) Terminate(disp Display) bool {
	return C.flutterpi_terminate(C.uintptr_t(disp)) != 0
}

func (d *rpiDriver) DestroyNativeWindow(win NativeWindow) {
	w, ok := d.windows[win]
	if !ok {
		return
	}
	delete(d.windows, win)
	C.flutterpi_destroy_native_window(w)
}

func (d *rpiDriver) Close() {
	C.bcm_host_deinit()
}

func (d *rpiDriver) GetError() int32 {
	return int32(C.eglGetError())
}

func (d *rpiDriver) ProcAddress(name string) unsafe.Pointer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.flutterpi_proc_address(cname)
}
