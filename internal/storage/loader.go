package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows aligned to columns and return the number of rows stored.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. When every is positive a partial
// batch is also flushed on that interval, so a slow trickle of rows does not
// wait for a full batch. It returns the total reported by copyFn and the first
// error encountered.
//
// Cancellation: returns (total, ctx.Err()) when canceled.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	every time.Duration,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total   int64
		batches int64
		batch   = make([][]any, 0, batchSize)
		tick    <-chan time.Time
	)
	if every > 0 {
		t := time.NewTicker(every)
		defer t.Stop()
		tick = t.C
	}

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			logrus.WithError(err).WithField("total", total).Warn("loader: copy failed")
			return err
		}
		batches++
		logrus.WithFields(logrus.Fields{
			"batch":    batches,
			"inserted": n,
			"total":    total,
		}).Debug("loader: batch flushed")
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case <-tick:
			if err := flush(); err != nil {
				return total, err
			}

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
