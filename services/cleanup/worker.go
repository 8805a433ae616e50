package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"go.uber.org/zap"
)

type Cleaner interface {
	CleanupExpiredOTPs(ctx context.Context) (int64, error)
}

// Worker purges expired one-time codes on a fixed interval.
type Worker struct {
	cleaner  Cleaner
	interval time.Duration
	logger   *logging.Service

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func NewWorker(cleaner Cleaner, interval time.Duration, logger *logging.Service) *Worker {
	return &Worker{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce performs a single purge.
func (w *Worker) RunOnce(ctx context.Context) (int64, error) {
	return w.cleaner.CleanupExpiredOTPs(ctx)
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.interval <= 0 {
		w.logger.Info("otp cleanup worker disabled")
		return
	}
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
					w.logger.Error("otp cleanup worker failed", zap.Error(err))
				}
			}
		}
	}()

	w.logger.Info("started otp cleanup worker", zap.Duration("interval", w.interval))
}

func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
