package lanecsv

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// RecordFunc handles one record of stream. The record is only valid during the call.
type RecordFunc func(ctx context.Context, stream int, rec Record[byte]) error

// ReadEach reads every input with its own Reader, running up to
// opts.Concurrency streams at once, and calls fn for each record in input
// order within a stream. fn runs concurrently across streams. The readers
// share opts.Pool, or one new pool when it is nil. The first error from any
// stream cancels the rest and is returned.
func ReadEach(ctx context.Context, inputs []io.Reader, opts Options, fn RecordFunc) error {
	if opts.Pool == nil {
		opts.Pool = NewBufferPool()
	}
	g, ctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, in := range inputs {
		g.Go(func() error {
			r, err := NewReaderOptions(in, opts)
			if err != nil {
				return fmt.Errorf("lanecsv: stream %d: %w", i, err)
			}
			defer r.Close()
			for {
				rec, err := r.ReadRecordContext(ctx)
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("lanecsv: stream %d: %w", i, err)
				}
				if err := fn(ctx, i, rec); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}
