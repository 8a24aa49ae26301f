// SPDX-License-Identifier: Unlicense OR MIT

// Package engine drives an embedded rendering engine: it starts one
// engine instance, forwards window metrics and pointer events to it,
// and shuts it down.
package engine

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"flutterpi.org/internal/log"
	"flutterpi.org/io/pointer"
)

// RenderDelegate is implemented by the host so the engine can drive
// presentation. The engine calls it from threads it controls. A false
// or nil result is a recoverable signal to the engine, not a host
// error.
type RenderDelegate interface {
	MakeCurrent() bool
	ClearCurrent() bool
	Present() bool
	// OnscreenTarget identifies the default render target.
	OnscreenTarget() uint32
	// ResolveSymbol returns the address of a rendering API entry
	// point or nil.
	ResolveSymbol(name string) unsafe.Pointer
}

// Config is the configuration an engine instance starts with. The
// runner copies what it needs; the Config may be discarded after
// Start returns.
type Config struct {
	// AssetsPath is a validated asset bundle directory.
	AssetsPath string
	// ICUDataPath is the locale data file.
	ICUDataPath string
	// Args are passed verbatim to the engine as its flags.
	Args []string
}

// WindowMetrics describes the render surface.
type WindowMetrics struct {
	Width, Height int
	// PixelRatio is the device pixels per logical pixel. Zero
	// means 1.
	PixelRatio float64
}

// Runner starts engine instances.
type Runner interface {
	Run(cfg Config, d RenderDelegate) (Instance, error)
}

// Instance is one running engine.
type Instance interface {
	SendWindowMetrics(m WindowMetrics) error
	SendPointerEvents(events ...pointer.Event) error
	SendPlatformMessage(channel string, data []byte) error
	// ProcessEvents runs the tasks the engine posted to the platform
	// thread. It must be called from the thread that started the
	// instance.
	ProcessEvents() error
	Shutdown() error
}

var (
	// ErrEngineRunning is returned when an engine instance is already
	// running in the process.
	ErrEngineRunning = errors.New("engine: an engine instance is already running in this process")
	// ErrNotRunning is returned by operations on a session that is
	// not running.
	ErrNotRunning = errors.New("engine: session is not running")
	// ErrInvalidConfig is returned when the start configuration
	// references missing resources.
	ErrInvalidConfig = errors.New("engine: invalid configuration")
)

// The embedded engine supports one instance per process.
var instanceHeld atomic.Bool

func acquireInstance() bool {
	return instanceHeld.CompareAndSwap(false, true)
}

func releaseInstance() {
	instanceHeld.Store(false)
}

// State of a Session.
type State uint8

const (
	Uninitialized State = iota
	Starting
	Running
	ShutDown
	// Failed is the terminal state of a session whose start failed.
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case ShutDown:
		return "ShutDown"
	case Failed:
		return "Failed"
	default:
		panic("unknown State")
	}
}

// Session owns at most one engine instance. Start and Shutdown must
// not run concurrently with other methods. While running, event
// submission and ProcessEvents may be called from different
// goroutines. The render delegate is the only part of a session the
// engine calls from its own threads.
type Session struct {
	runner Runner
	log    *zap.Logger
	state  State
	inst   Instance
}

// NewSession returns an unstarted session that starts its engine
// with r.
func NewSession(r Runner) *Session {
	return &Session{runner: r, log: log.Named("engine")}
}

// State returns the session state.
func (s *Session) State() State { return s.state }

// Running reports whether the session has a live engine instance.
func (s *Session) Running() bool { return s.state == Running }

// Start validates cfg and starts the engine with the callbacks of d.
// A failed start is terminal: the session is never retried.
func (s *Session) Start(cfg Config, d RenderDelegate) error {
	if s.state != Uninitialized {
		return fmt.Errorf("engine: cannot start a session in state %v", s.state)
	}
	if err := cfg.validate(); err != nil {
		s.state = Failed
		s.log.Error("invalid engine configuration", log.Stage("engine.start"), zap.Error(err))
		return err
	}
	if d == nil {
		s.state = Failed
		return fmt.Errorf("%w: nil render delegate", ErrInvalidConfig)
	}
	if !acquireInstance() {
		s.state = Failed
		s.log.Error("refusing to start a second engine", log.Stage("engine.start"))
		return ErrEngineRunning
	}
	s.state = Starting
	inst, err := s.runner.Run(cfg, d)
	if err != nil {
		releaseInstance()
		s.state = Failed
		s.log.Error("could not run the engine", log.Stage("engine.start"), zap.Error(err))
		return fmt.Errorf("engine: start: %w", err)
	}
	s.inst = inst
	s.state = Running
	s.log.Info("engine running",
		zap.String("assets", cfg.AssetsPath),
		zap.String("icu_data", cfg.ICUDataPath),
		zap.Strings("args", cfg.Args))
	return nil
}

func (c Config) validate() error {
	if c.AssetsPath == "" {
		return fmt.Errorf("%w: empty assets path", ErrInvalidConfig)
	}
	if c.ICUDataPath == "" {
		return fmt.Errorf("%w: empty ICU data path", ErrInvalidConfig)
	}
	if _, err := os.Stat(c.AssetsPath); err != nil {
		return fmt.Errorf("%w: assets: %v", ErrInvalidConfig, err)
	}
	if _, err := os.Stat(c.ICUDataPath); err != nil {
		return fmt.Errorf("%w: ICU data: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SetWindowMetrics notifies the engine of the surface size. Failures
// are logged and reported, never fatal.
func (s *Session) SetWindowMetrics(m WindowMetrics) bool {
	if s.state != Running {
		s.log.Warn("window metrics on a session that is not running", log.Stage("engine.metrics"), zap.Stringer("state", s.state))
		return false
	}
	if m.PixelRatio <= 0 {
		m.PixelRatio = 1
	}
	if err := s.inst.SendWindowMetrics(m); err != nil {
		s.log.Warn("could not send window metrics", log.Stage("engine.metrics"), zap.Error(err))
		return false
	}
	return true
}

// SendPointerEvent forwards one pointer event to the engine.
func (s *Session) SendPointerEvent(e pointer.Event) bool {
	if s.state != Running {
		s.log.Warn("pointer event on a session that is not running", log.Stage("engine.pointer"), zap.Stringer("state", s.state))
		return false
	}
	if err := s.inst.SendPointerEvents(e); err != nil {
		s.log.Warn("could not send pointer event", log.Stage("engine.pointer"), zap.Stringer("event", e), zap.Error(err))
		return false
	}
	return true
}

// ProcessEvents runs pending engine tasks on the calling thread. Hosts
// call it from their event loop on the thread that called Start.
func (s *Session) ProcessEvents() bool {
	if s.state != Running {
		return false
	}
	if err := s.inst.ProcessEvents(); err != nil {
		s.log.Warn("could not run engine tasks", log.Stage("engine.tasks"), zap.Error(err))
		return false
	}
	return true
}

// clampMicros limits a timestamp to the largest value the engine's
// timestamp field holds, so timestamps stop advancing instead of
// wrapping around on 32-bit targets.
func clampMicros(us, limit uint64) uint64 {
	return min(us, limit)
}

// SendPlatformMessage sends data to the engine on a named channel.
func (s *Session) SendPlatformMessage(channel string, data []byte) error {
	if s.state != Running {
		return ErrNotRunning
	}
	if channel == "" {
		return errors.New("engine: empty channel name")
	}
	return s.inst.SendPlatformMessage(channel, data)
}

// Shutdown stops a running engine. Only the first call has an
// effect, and a failed session stays Failed. A failed engine shutdown is logged and returned; the
// session is shut down regardless.
func (s *Session) Shutdown() error {
	switch s.state {
	case ShutDown, Failed:
		return nil
	case Running:
	default:
		s.state = ShutDown
		return nil
	}
	inst := s.inst
	s.inst = nil
	s.state = ShutDown
	err := inst.Shutdown()
	releaseInstance()
	if err != nil {
		s.log.Error("could not shut down the engine", log.Stage("engine.shutdown"), zap.Error(err))
		return fmt.Errorf("engine: shutdown: %w", err)
	}
	s.log.Info("engine shut down")
	return nil
}
