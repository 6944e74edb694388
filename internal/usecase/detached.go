package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"PublishGate/internal/metrics"
)

// Detached runs best-effort side tasks that the caller never waits on.
// Failures and panics are logged and counted, never returned.
type Detached struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewDetached bounds every task by timeout.
func NewDetached(timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Detached {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detached{timeout: timeout, logger: logger, metrics: m}
}

// Go starts fn on its own goroutine with a fresh context.
func (d *Detached) Go(name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.run(ctx, fn); err != nil {
			d.metrics.RecordSideSyncFailure()
			d.logger.Warn("side task failed", "task", name, "error", err)
			return
		}
		d.logger.Debug("side task finished", "task", name)
	}()
}

// Wait blocks until every started task has returned.
func (d *Detached) Wait() {
	d.wg.Wait()
}

func (d *Detached) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
