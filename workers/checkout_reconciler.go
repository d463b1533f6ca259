package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reconciler settles checkouts whose webhook never arrived.
type Reconciler interface {
	Reconcile(ctx context.Context, minAge time.Duration) (int, error)
}

// CheckoutReconciler polls the payment provider for stale pending checkouts.
type CheckoutReconciler struct {
	Checkouts Reconciler
	Interval  time.Duration
	MinAge    time.Duration
	Logger    *zap.Logger
}

func NewCheckoutReconciler(r Reconciler, interval time.Duration, logger *zap.Logger) *CheckoutReconciler {
	return &CheckoutReconciler{Checkouts: r, Interval: interval, MinAge: time.Minute, Logger: logger}
}

func (w *CheckoutReconciler) Start(ctx context.Context) {
	w.Logger.Info("starting checkout reconciler", zap.Duration("interval", w.Interval))
	go w.Run(ctx)
}

// Run polls until ctx is cancelled.
func (w *CheckoutReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("checkout reconciler stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CheckoutReconciler) tick(ctx context.Context) {
	n, err := w.Checkouts.Reconcile(ctx, w.MinAge)
	if err != nil {
		// The window is retried on the next tick.
		w.Logger.Error("checkout reconcile failed", zap.Error(err))
		return
	}
	if n > 0 {
		w.Logger.Info("checkouts reconciled", zap.Int("settled", n))
	}
}
