// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForDeviceExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event0")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.NoError(t, WaitForDevice(context.Background(), path))
}

func TestWaitForDeviceCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event1")
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, nil, 0o644)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, WaitForDevice(ctx, path))
}

func TestWaitForDeviceCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event2")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, WaitForDevice(ctx, path), context.DeadlineExceeded)
}

func TestWaitForDeviceMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "event0")
	assert.Error(t, WaitForDevice(context.Background(), path))
}
