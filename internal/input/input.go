// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"flutterpi.org/internal/log"
	"flutterpi.org/io/pointer"
)

// ErrClosed is returned by reads from a closed Source.
var ErrClosed = errors.New("input: source closed")

// Source is a blocking stream of raw samples.
type Source interface {
	// Read blocks until the next sample is available or ctx is done.
	Read(ctx context.Context) (Sample, error)
	Close() error
}

// Sink receives translated pointer events.
type Sink interface {
	SendPointerEvent(e pointer.Event) bool
}

// Run reads samples from src until ctx is done or a read fails,
// translating them with t and forwarding events to sink. Events the
// sink rejects are logged and dropped. Run closes src before it
// returns; it returns ctx.Err() when stopped through ctx and the read
// error otherwise.
func Run(ctx context.Context, src Source, t *Tracker, sink Sink) error {
	l := log.Named("input")
	defer func() {
		if err := src.Close(); err != nil {
			l.Warn("could not close input source", zap.Error(err))
		}
	}()
	for {
		s, err := src.Read(ctx)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			l.Error("input read failed", log.Stage("input.read"), zap.Error(err))
			return fmt.Errorf("input: read: %w", err)
		}
		e, ok := t.Translate(s)
		if !ok {
			continue
		}
		if !sink.SendPointerEvent(e) {
			l.Debug("pointer event dropped", zap.Stringer("event", e))
		}
	}
}
