// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitForDevice blocks until a file exists at path or ctx is done.
func WaitForDevice(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if exists(path) {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("input: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("input: watch %s: %w", filepath.Dir(path), err)
	}
	// The node may have appeared before the watch was added.
	if exists(path) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("input: watcher closed")
			}
			if filepath.Clean(ev.Name) == path && ev.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("input: watcher closed")
			}
			return fmt.Errorf("input: watch: %w", err)
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
