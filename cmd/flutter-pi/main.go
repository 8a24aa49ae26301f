// SPDX-License-Identifier: Unlicense OR MIT

// Command flutter-pi runs a Flutter asset bundle fullscreen on a
// Raspberry Pi display, driven by a touchscreen.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flutterpi.org/internal/bundle"
	"flutterpi.org/internal/config"
	"flutterpi.org/internal/egl"
	"flutterpi.org/internal/engine"
	"flutterpi.org/internal/input"
	"flutterpi.org/internal/log"
)

var configPath = flag.String("config", "", "configuration `file` (.toml, .yaml or .yml)")

// pumpInterval bounds the delay of tasks the engine posts to the
// platform thread.
const pumpInterval = 8 * time.Millisecond

func init() {
	// The engine binds its platform task runner to the thread that
	// starts it; main keeps that thread and runs the tasks on it.
	runtime.LockOSThread()
}

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, mainUsage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if err := mainErr(); err != nil {
		fmt.Fprintf(os.Stderr, "flutter-pi: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func mainErr() error {
	cfg, err := loadConfig(*configPath, flag.Args())
	if err != nil {
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

	surface := egl.NewProvider(egl.NewDriver())
	defer surface.Release()
	if !surface.Valid() {
		return fmt.Errorf("could not initialize the display: %w", surface.Err())
	}

	session := engine.NewSession(engine.NewEmbedder())
	err = session.Start(engine.Config{
		AssetsPath:  cfg.Assets,
		ICUDataPath: icu,
		Args:        engine.DefaultArgs(cfg.EngineArgs...),
	}, surface)
	if err != nil {
		return err
	}
	defer session.Shutdown()
	session.SetWindowMetrics(engine.WindowMetrics{
		Width:      surface.Width(),
		Height:     surface.Height(),
		PixelRatio: cfg.PixelRatio,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	src, err := openInput(ctx, cfg.Input, surface.Width(), surface.Height())
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return input.Run(ctx, src, input.NewTracker(), session)
	})
	pump(ctx, session, pumpInterval)
	log.L().Info("stopping")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type taskRunner interface {
	ProcessEvents() bool
}

// pump runs pending engine tasks every interval until ctx is done.
func pump(ctx context.Context, r taskRunner, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ctx.Err() != nil {
				return
			}
			r.ProcessEvents()
		}
	}
}

// loadConfig reads the configuration file and applies the command
// line: the first argument names the asset bundle, the rest are
// passed to the engine.
func loadConfig(path string, args []string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Assets = args[0]
		cfg.EngineArgs = append(cfg.EngineArgs, args[1:]...)
	}
	if cfg.Assets == "" {
		return nil, errors.New("specify an asset bundle path")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openInput opens the touchscreen, waiting for it to appear if so
// configured, and maps its coordinates onto the display.
func openInput(ctx context.Context, cfg config.Input, width, height int) (input.Source, error) {
	if cfg.Wait > 0 {
		wctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Wait))
		err := input.WaitForDevice(wctx, cfg.Device)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", cfg.Device, err)
		}
	}
	dev, err := input.OpenDevice(cfg.Device, cfg.Grab)
	if err != nil {
		return nil, err
	}
	x, y, err := dev.Axes()
	if err != nil {
		log.Named("input").Warn("could not query touchscreen axes; using raw coordinates", zap.Error(err))
		return dev, nil
	}
	return input.Scale(dev, x, y, width, height), nil
}

const mainUsage = `The flutter-pi command runs a Flutter application on the display.

Usage:

	flutter-pi [flags] <asset bundle path> [engine flags...]

The asset bundle directory must contain kernel_blob.bin. The ICU data
file icudtl.dat is looked up next to the flutter-pi executable unless
configured otherwise.

Flags:

`
