/*
scheduler.go - Periodic balance refresh

PURPOSE:
  Balances move with the clock even when nobody punches: a new day adds a
  contractual debit and an open shift accrues every minute. The scheduler
  recomputes every employee's balance on a fixed interval and publishes it
  as the timebank_balance_minutes gauge.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Reads one snapshot and one clock value per run
  - Never writes; the ledger is only changed by punches and managers

USAGE:
  scheduler := NewBalanceScheduler(service, metrics, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nobel/timebank/timebank"
)

// BalanceScheduler refreshes the published balances.
type BalanceScheduler struct {
	Service       *timebank.Service
	Metrics       *Metrics
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // guards Start/Stop

	lastMu  sync.Mutex
	lastRun time.Time
}

// NewBalanceScheduler creates a scheduler with a one-minute interval.
func NewBalanceScheduler(svc *timebank.Service, metrics *Metrics, logger *zap.Logger) *BalanceScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceScheduler{
		Service:       svc,
		Metrics:       metrics,
		Logger:        logger.Named("scheduler"),
		CheckInterval: time.Minute,
		Enabled:       true,
	}
}

// Start begins the scheduler. It is a no-op when disabled or running.
func (bs *BalanceScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		bs.Logger.Info("disabled, not starting")
		return
	}
	if bs.ticker != nil {
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.stop = make(chan struct{})
	bs.wg.Add(1)

	go bs.run(bs.ticker, bs.stop)

	bs.Logger.Info("started", zap.Duration("interval", bs.CheckInterval))
}

// Stop stops the scheduler and waits for a run in progress.
func (bs *BalanceScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		bs.ticker = nil
		bs.Logger.Info("stopped")
	}
}

func (bs *BalanceScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer bs.wg.Done()

	bs.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			bs.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow recomputes and publishes every balance once.
func (bs *BalanceScheduler) RunNow(ctx context.Context) error {
	started := time.Now()
	balances, _, err := bs.Service.Balances(ctx)
	if err != nil {
		bs.Logger.Error("balance refresh failed", zap.Error(err))
		return err
	}
	bs.Metrics.PublishBalances(balances)

	truncated := 0
	for _, b := range balances {
		if b.Truncated {
			truncated++
		}
	}
	if truncated > 0 {
		bs.Logger.Warn("balance history truncated", zap.Int("employees", truncated), zap.Int("max_days", timebank.MaxAccrualDays))
	}

	bs.lastMu.Lock()
	bs.lastRun = started
	bs.lastMu.Unlock()

	bs.Logger.Debug("balances refreshed",
		zap.Int("employees", len(balances)),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// LastRun returns when the last successful refresh started.
func (bs *BalanceScheduler) LastRun() time.Time {
	bs.lastMu.Lock()
	defer bs.lastMu.Unlock()
	return bs.lastRun
}

// GetNextRunTime returns when the next scheduled refresh will occur.
func (bs *BalanceScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(bs.CheckInterval)
}
