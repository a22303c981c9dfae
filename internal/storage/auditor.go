package storage

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Auditor writes Upload rows to a Repository in the background. Record never
// blocks the caller: when the queue is full the row is dropped and logged.
type Auditor struct {
	in   chan []any
	done chan struct{}

	mu     sync.RWMutex
	closed bool
	err    error
}

// AuditorOptions tunes batching.
type AuditorOptions struct {
	Queue     int
	BatchSize int
	Interval  time.Duration
}

// NewAuditor starts the background writer. Insert failures are logged and do
// not stop it.
func NewAuditor(ctx context.Context, repo Repository, opt AuditorOptions) *Auditor {
	if opt.Queue <= 0 {
		opt.Queue = 256
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = 32
	}
	if opt.Interval <= 0 {
		opt.Interval = 2 * time.Second
	}

	a := &Auditor{
		in:   make(chan []any, opt.Queue),
		done: make(chan struct{}),
	}
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		n, err := repo.CopyFrom(ctx, columns, rows)
		if err != nil {
			logrus.WithError(err).WithField("rows", len(rows)).Error("audit: insert failed")
		}
		return n, nil
	}
	go func() {
		defer close(a.done)
		_, a.err = LoadBatches(ctx, UploadColumns, a.in, opt.BatchSize, opt.Interval, copyFn)
	}()
	return a
}

// Record queues u for writing.
func (a *Auditor) Record(u Upload) {
	if a == nil {
		return
	}
	if u.At.IsZero() {
		u.At = time.Now()
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.in <- u.Values():
	default:
		logrus.WithField("session", u.SessionID).Warn("audit: queue full, upload record dropped")
	}
}

// Close flushes pending rows and waits for the writer to stop.
func (a *Auditor) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.in)
	}
	a.mu.Unlock()
	<-a.done
	return a.err
}
