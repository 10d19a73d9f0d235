package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AutoCloseLockKey is the Redis key that keeps concurrent replicas from closing in parallel.
const AutoCloseLockKey = "locks:auto-close"

// AutoCloser closes resolved tickets older than a cutoff and reports how many it closed.
type AutoCloser interface {
	AutoCloseResolved(ctx context.Context, olderThan time.Duration) (int, error)
}

// Locker guards a run across processes. A nil Locker runs unguarded.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// AutoCloseWorker periodically closes long-resolved tickets.
type AutoCloseWorker struct {
	closer    AutoCloser
	locker    Locker
	logger    *zap.Logger
	interval  time.Duration
	olderThan time.Duration
	lockTTL   time.Duration
}

// NewAutoCloseWorker builds the worker. A non-positive interval defaults to a day.
func NewAutoCloseWorker(closer AutoCloser, locker Locker, logger *zap.Logger, interval, olderThan time.Duration) *AutoCloseWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	lockTTL := interval / 2
	if lockTTL < time.Minute {
		lockTTL = time.Minute
	}
	return &AutoCloseWorker{
		closer:    closer,
		locker:    locker,
		logger:    logger,
		interval:  interval,
		olderThan: olderThan,
		lockTTL:   lockTTL,
	}
}

// Start runs one pass immediately and then one per interval in a background goroutine.
// The returned function stops the loop and waits for an in-flight pass to finish.
func (w *AutoCloseWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// RunOnce performs a single pass and returns the number of tickets closed.
func (w *AutoCloseWorker) RunOnce(ctx context.Context) int {
	if w.locker != nil {
		acquired, err := w.locker.AcquireLock(ctx, AutoCloseLockKey, w.lockTTL)
		switch {
		case err != nil:
			// Closing is idempotent, so an unreachable lock store does not stop the pass.
			w.logger.Warn("auto-close lock unavailable; running unguarded", zap.Error(err))
		case !acquired:
			w.logger.Debug("auto-close already running elsewhere")
			return 0
		default:
			defer func() {
				if err := w.locker.ReleaseLock(context.WithoutCancel(ctx), AutoCloseLockKey); err != nil {
					w.logger.Warn("auto-close lock release failed", zap.Error(err))
				}
			}()
		}
	}

	closed, err := w.closer.AutoCloseResolved(ctx, w.olderThan)
	if err != nil {
		w.logger.Error("auto-close pass failed", zap.Int("closed", closed), zap.Error(err))
		return closed
	}
	w.logger.Info("auto-close pass finished", zap.Int("closed", closed), zap.Duration("older_than", w.olderThan))
	return closed
}
