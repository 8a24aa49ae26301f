// SPDX-License-Identifier: Unlicense OR MIT

// Package log holds the process logger shared by the host packages.
package log

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// L returns the process logger. It is a no-op logger until
// Set installs one.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Set replaces the process logger and returns a function
// restoring the previous one.
func Set(l *zap.Logger) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := logger
	logger = l
	return func() {
		Set(prev)
	}
}

// Named returns a child of the process logger for a component.
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// New builds a logger writing to stderr at the given level. Output is
// colored console text when stderr is a terminal and JSON otherwise,
// or always JSON when json is set.
func New(level string, json bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if !json && term.IsTerminal(int(os.Stderr.Fd())) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))), nil
}

// Stage tags a log entry with the lifecycle stage that produced it.
func Stage(name string) zap.Field {
	return zap.String("stage", name)
}
