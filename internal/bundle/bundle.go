// SPDX-License-Identifier: Unlicense OR MIT

// Package bundle locates the files an engine needs at startup: the
// asset bundle and the ICU locale data.
package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// KernelBlob marks a compiled asset bundle.
	KernelBlob = "kernel_blob.bin"
	// ICUDataFile is the locale data file shipped next to the host
	// executable.
	ICUDataFile = "icudtl.dat"
)

// ErrInvalidBundle is returned for asset bundles that cannot be used.
var ErrInvalidBundle = errors.New("invalid asset bundle")

// Validate checks that dir is an asset bundle directory containing
// the kernel blob.
func Validate(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: no bundle path", ErrInvalidBundle)
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: bundle directory %s does not exist", ErrInvalidBundle, dir)
	}
	if !readable(filepath.Join(dir, KernelBlob)) {
		return fmt.Errorf("%w: kernel blob does not exist in %s", ErrInvalidBundle, dir)
	}
	return nil
}

// ExecutableDir returns the directory containing the running
// executable.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("couldn't locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("couldn't locate executable: %w", err)
	}
	return filepath.Dir(exe), nil
}

// ICUDataPath returns the path of the ICU data file next to the
// executable.
func ICUDataPath() (string, error) {
	dir, err := ExecutableDir()
	if err != nil {
		return "", err
	}
	return FindICUData(dir)
}

// FindICUData returns the path of the ICU data file in dir.
func FindICUData(dir string) (string, error) {
	path := filepath.Join(dir, ICUDataFile)
	if !readable(path) {
		return "", fmt.Errorf("could not find %s", path)
	}
	return path, nil
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
