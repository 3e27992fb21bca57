package listview

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AutoRefresh re-runs a fetch on a fixed interval until stopped.
type AutoRefresh struct {
	interval time.Duration
	fn       func(context.Context) error
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAutoRefresh creates a stopped refresher.
func NewAutoRefresh(interval time.Duration, fn func(context.Context) error, logger *slog.Logger) *AutoRefresh {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoRefresh{interval: interval, fn: fn, logger: logger}
}

// Start launches the ticker goroutine. Calling Start twice is a no-op.
func (a *AutoRefresh) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.wg.Add(1)
	go a.run(ctx)
}

// Interval returns the tick period.
func (a *AutoRefresh) Interval() time.Duration {
	return a.interval
}

// Running reports whether the ticker is active.
func (a *AutoRefresh) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Stop cancels the ticker and waits for an in-progress tick to finish.
func (a *AutoRefresh) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()
}

func (a *AutoRefresh) run(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.fn(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("auto refresh", slog.Any("error", err))
			}
		}
	}
}
