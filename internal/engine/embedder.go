// SPDX-License-Identifier: Unlicense OR MIT

//go:build flutter && cgo

package engine

/*
#cgo LDFLAGS: -lflutter_engine

#include <stdint.h>
#include <stdlib.h>
#include <flutter_embedder.h>

extern void flutterpi_fill_renderer_config(FlutterRendererConfig *config);
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"unsafe"

	"go.uber.org/zap"

	"flutterpi.org/internal/log"
	"flutterpi.org/io/pointer"
)

// argv0 is the program name the engine strips from its flag list.
const argv0 = "flutter-pi"

type embedder struct{}

// embedderInstance is an engine started through the embedder API.
type embedderInstance struct {
	engine C.FlutterEngine
	handle cgo.Handle
	// userdata is C memory holding handle, passed to every callback.
	userdata unsafe.Pointer
}

// NewEmbedder returns the Runner backed by the engine library
// linked into this build.
func NewEmbedder() Runner {
	return embedder{}
}

type resultError C.FlutterEngineResult

func (e resultError) Error() string {
	switch C.FlutterEngineResult(e) {
	case C.kInvalidLibraryVersion:
		return "invalid library version"
	case C.kInvalidArguments:
		return "invalid arguments"
	case C.kInternalInconsistency:
		return "internal inconsistency"
	default:
		return fmt.Sprintf("engine result %d", int(e))
	}
}

func check(res C.FlutterEngineResult) error {
	if res != C.kSuccess {
		return resultError(res)
	}
	return nil
}

func (embedder) Run(cfg Config, d RenderDelegate) (Instance, error) {
	var rc C.FlutterRendererConfig
	C.flutterpi_fill_renderer_config(&rc)

	assets := C.CString(cfg.AssetsPath)
	defer C.free(unsafe.Pointer(assets))
	icu := C.CString(cfg.ICUDataPath)
	defer C.free(unsafe.Pointer(icu))
	// The argument vector lives in C memory; cgo forbids passing
	// Go memory that holds pointers.
	argc := len(cfg.Args) + 1
	argv := C.malloc(C.size_t(argc) * C.size_t(unsafe.Sizeof((*C.char)(nil))))
	cargs := unsafe.Slice((**C.char)(argv), argc)
	cargs[0] = C.CString(argv0)
	for n, a := range cfg.Args {
		cargs[n+1] = C.CString(a)
	}
	defer func() {
		for _, a := range cargs {
			C.free(unsafe.Pointer(a))
		}
		C.free(argv)
	}()

	var args C.FlutterProjectArgs
	args.struct_size = C.size_t(unsafe.Sizeof(args))
	args.assets_path = assets
	args.icu_data_path = icu
	args.command_line_argc = C.int(argc)
	args.command_line_argv = (**C.char)(argv)

	inst := &embedderInstance{handle: cgo.NewHandle(d)}
	inst.userdata = C.malloc(C.size_t(unsafe.Sizeof(C.uintptr_t(0))))
	*(*C.uintptr_t)(inst.userdata) = C.uintptr_t(inst.handle)

	res := C.FlutterEngineRun(C.FLUTTER_ENGINE_VERSION, &rc, &args, inst.userdata, &inst.engine)
	if err := check(res); err != nil {
		inst.release()
		return nil, fmt.Errorf("FlutterEngineRun: %w", err)
	}
	return inst, nil
}

func (i *embedderInstance) release() {
	i.handle.Delete()
	C.free(i.userdata)
	i.userdata = nil
}

func (i *embedderInstance) SendWindowMetrics(m WindowMetrics) error {
	var ev C.FlutterWindowMetricsEvent
	ev.struct_size = C.size_t(unsafe.Sizeof(ev))
	ev.width = C.size_t(m.Width)
	ev.height = C.size_t(m.Height)
	ev.pixel_ratio = C.double(m.PixelRatio)
	return check(C.FlutterEngineSendWindowMetricsEvent(i.engine, &ev))
}

func (i *embedderInstance) SendPointerEvents(events ...pointer.Event) error {
	if len(events) == 0 {
		return nil
	}
	evs := make([]C.FlutterPointerEvent, len(events))
	for n, e := range events {
		ev := &evs[n]
		ev.struct_size = C.size_t(unsafe.Sizeof(*ev))
		ev.phase = phaseOf(e.Phase)
		// size_t is 32 bits on armv7 and would wrap after about 71
		// minutes.
		ev.timestamp = C.size_t(clampMicros(e.Micros(), uint64(^C.size_t(0))))
		ev.x = C.double(e.X)
		ev.y = C.double(e.Y)
		ev.device_kind = C.kFlutterPointerDeviceKindTouch
	}
	return check(C.FlutterEngineSendPointerEvent(i.engine, &evs[0], C.size_t(len(evs))))
}

func phaseOf(p pointer.Phase) C.FlutterPointerPhase {
	switch p {
	case pointer.Up:
		return C.kUp
	case pointer.Down:
		return C.kDown
	case pointer.Move:
		return C.kMove
	default:
		return C.kCancel
	}
}

func (i *embedderInstance) SendPlatformMessage(channel string, data []byte) error {
	cchannel := C.CString(channel)
	defer C.free(unsafe.Pointer(cchannel))
	var msg C.FlutterPlatformMessage
	msg.struct_size = C.size_t(unsafe.Sizeof(msg))
	msg.channel = cchannel
	if len(data) > 0 {
		buf := C.CBytes(data)
		defer C.free(buf)
		msg.message = (*C.uint8_t)(buf)
		msg.message_size = C.size_t(len(data))
	}
	return check(C.FlutterEngineSendPlatformMessage(i.engine, &msg))
}

func (i *embedderInstance) ProcessEvents() error {
	return check(C.__FlutterEngineFlushPendingTasksNow())
}

func (i *embedderInstance) Shutdown() error {
	err := check(C.FlutterEngineShutdown(i.engine))
	// No callbacks run after the engine has shut down.
	i.release()
	return err
}

// delegateOf recovers the RenderDelegate registered for userdata.
func delegateOf(userdata unsafe.Pointer) RenderDelegate {
	if userdata == nil {
		return nil
	}
	d, _ := cgo.Handle(*(*C.uintptr_t)(userdata)).Value().(RenderDelegate)
	return d
}

func recoverCallback(name string) {
	if r := recover(); r != nil {
		log.Named("engine").Error("render callback panicked", zap.String("callback", name), zap.Any("panic", r))
	}
}

//export flutterpiMakeCurrent
func flutterpiMakeCurrent(userdata unsafe.Pointer) (ok C.bool) {
	defer recoverCallback("make_current")
	if d := delegateOf(userdata); d != nil {
		ok = C.bool(d.MakeCurrent())
	}
	return ok
}

//export flutterpiClearCurrent
func flutterpiClearCurrent(userdata unsafe.Pointer) (ok C.bool) {
	defer recoverCallback("clear_current")
	if d := delegateOf(userdata); d != nil {
		ok = C.bool(d.ClearCurrent())
	}
	return ok
}

//export flutterpiPresent
func flutterpiPresent(userdata unsafe.Pointer) (ok C.bool) {
	defer recoverCallback("present")
	if d := delegateOf(userdata); d != nil {
		ok = C.bool(d.Present())
	}
	return ok
}

//export flutterpiOnscreenTarget
func flutterpiOnscreenTarget(userdata unsafe.Pointer) (fbo C.uint32_t) {
	defer recoverCallback("fbo_callback")
	if d := delegateOf(userdata); d != nil {
		fbo = C.uint32_t(d.OnscreenTarget())
	}
	return fbo
}

//export flutterpiResolveSymbol
func flutterpiResolveSymbol(userdata unsafe.Pointer, name *C.char) (addr unsafe.Pointer) {
	defer recoverCallback("gl_proc_resolver")
	if name == nil {
		return nil
	}
	if d := delegateOf(userdata); d != nil {
		addr = d.ResolveSymbol(C.GoString(name))
	}
	return addr
}
