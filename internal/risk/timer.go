package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mbd888/churnsight/internal/logging"
	"github.com/mbd888/churnsight/internal/signals"
)

// CustomerLister enumerates customers whose signal history changed recently.
type CustomerLister interface {
	ActiveCustomers(ctx context.Context, since time.Time) ([]signals.CustomerRef, error)
}

// Timer periodically recomputes risk scores for customers with fresh signals.
type Timer struct {
	engine   *Engine
	lister   CustomerLister
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
	lastRun  time.Time
}

// NewTimer creates a scheduled risk recomputation sweep.
func NewTimer(engine *Engine, lister CustomerLister, interval time.Duration, logger *slog.Logger) *Timer {
	return &Timer{
		engine:   engine,
		lister:   lister,
		interval: interval,
		logger:   logging.Component(logger, "risk_timer"),
		stop:     make(chan struct{}),
	}
}

// Running reports whether the sweep loop is actively running.
func (t *Timer) Running() bool {
	return t.running.Load()
}

// Start begins the recompute loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	t.lastRun = time.Now().UTC()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safeSweep(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in risk sweep", "panic", fmt.Sprint(r))
		}
	}()
	t.sweep(ctx)
}

func (t *Timer) sweep(ctx context.Context) {
	since := t.lastRun
	t.lastRun = time.Now().UTC()

	refs, err := t.lister.ActiveCustomers(ctx, since)
	if err != nil {
		t.logger.Warn("failed to list active customers", "error", err)
		return
	}
	if len(refs) == 0 {
		return
	}

	recomputed := 0
	for _, ref := range refs {
		if _, err := t.engine.Compute(ctx, ref.CompanyID, ref.CustomerID, ComputeOptions{}); err != nil {
			t.logger.Warn("failed to recompute risk score",
				"company_id", ref.CompanyID,
				"customer_id", ref.CustomerID,
				"error", err,
			)
			continue
		}
		recomputed++
	}
	t.logger.Info("risk sweep complete", "candidates", len(refs), "recomputed", recomputed)
}
