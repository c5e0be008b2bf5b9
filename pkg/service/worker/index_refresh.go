package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
)

// RefreshFunc brings the search index in line with the corpus
type RefreshFunc func(ctx context.Context) error

// IndexRefreshWorker warms the index up in the background and then re-checks
// corpus freshness on a fixed interval. A failed check keeps the index that is
// already serving; the next tick tries again.
//
// Architecture assumptions:
// - Single server instance per index location
// - Concurrent refreshes are coalesced by the caller's RefreshFunc
type IndexRefreshWorker struct {
	refresh  RefreshFunc
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewIndexRefreshWorker creates a worker. An interval of 0 runs only the
// initial warmup.
func NewIndexRefreshWorker(refresh RefreshFunc, interval time.Duration) *IndexRefreshWorker {
	return &IndexRefreshWorker{
		refresh:  refresh,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. It does not block server startup.
func (w *IndexRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("index refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *IndexRefreshWorker) Stop() {
	logging.Default().Info("index refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("index refresh worker stopped")
}

// Done is closed once the loop has exited
func (w *IndexRefreshWorker) Done() <-chan struct{} {
	return w.doneCh
}

func (w *IndexRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.runOnce(ctx, "warmup"); err != nil {
		logging.Default().Error("index warmup failed (will retry next interval)",
			"error", err.Error())
	}

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			if err := w.runOnce(ctx, "periodic"); err != nil {
				logging.Default().Error("index refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("index refresh worker context cancelled")
			return
		}
	}
}

func (w *IndexRefreshWorker) runOnce(ctx context.Context, trigger string) error {
	start := time.Now()
	if err := w.refresh(ctx); err != nil {
		return err
	}
	logging.Default().Debug("index refresh check completed",
		"trigger", trigger,
		"duration", time.Since(start).String())
	return nil
}
