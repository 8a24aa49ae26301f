// SPDX-License-Identifier: Unlicense OR MIT

// Command flutter-desktop runs a Flutter asset bundle in a desktop
// window. Build it with the glfw tag.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"flutterpi.org/internal/bundle"
	"flutterpi.org/internal/config"
	"flutterpi.org/internal/engine"
	"flutterpi.org/internal/log"
	"flutterpi.org/internal/window"
)

var (
	configPath = flag.String("config", "", "configuration `file` (.toml, .yaml or .yml)")
	width      = flag.Int("width", 0, "window width; overrides the configuration")
	height     = flag.Int("height", 0, "window height; overrides the configuration")
	title      = flag.String("title", "", "window title; overrides the configuration")
)

func init() {
	// The window toolkit must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	if err := mainErr(); err != nil {
		fmt.Fprintf(os.Stderr, "flutter-desktop: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func mainErr() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Assets = args[0]
		cfg.EngineArgs = append(cfg.EngineArgs, args[1:]...)
	}
	if *width > 0 {
		cfg.Window.Width = *width
	}
	if *height > 0 {
		cfg.Window.Height = *height
	}
	if *title != "" {
		cfg.Window.Title = *title
	}
	if cfg.Assets == "" {
		return errors.New("specify an asset bundle path")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := log.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return err
	}
	defer log.Set(logger)()
	defer logger.Sync()

	if err := bundle.Validate(cfg.Assets); err != nil {
		return err
	}
	icu := cfg.ICUData
	if icu == "" {
		if icu, err = bundle.ICUDataPath(); err != nil {
			return err
		}
	}

	c := window.NewController(window.NewRuntime(window.NewToolkit()), engine.NewEmbedder(), icu)
	defer c.Close()
	w := cfg.Window
	if err := c.CreateWindow(w.Width, w.Height, w.Title, cfg.Assets, engine.DefaultArgs(cfg.EngineArgs...)); err != nil {
		return err
	}
	c.RunEventLoop()
	return nil
}
