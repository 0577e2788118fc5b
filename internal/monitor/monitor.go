// Package monitor samples store health on a cron schedule: persisted
// message count and on-disk size, exported as Prometheus gauges and logged.
// It only observes; the message log is append-only and nothing here ever
// deletes a record.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"cipherrelay/pkg/config"
	"cipherrelay/pkg/logger"
	"cipherrelay/pkg/store"
)

const defaultCron = "*/5 * * * *"

// Start launches the sampler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config, st *store.Store) (context.CancelFunc, error) {
	if !cfg.Monitor.Enabled {
		logger.Info("monitor_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Monitor.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("monitor_invalid_cron", "cron", cfg.Monitor.Cron)
		return nil, fmt.Errorf("invalid monitor cron expression: %s", cfg.Monitor.Cron)
	}

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, st, cronExpr)
	logger.Info("monitor_started", "cron", cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the cron expression with gronx
// and sleeps until then, sampling once per tick.
func runScheduler(ctx context.Context, st *store.Store, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("monitor_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("monitor_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			Sample(st)
		case <-ctx.Done():
			logger.Info("monitor_stopping")
			return
		}
	}
}

// Sample takes one store measurement. Exposed so tests and admin triggers
// can run it on demand.
func Sample(st *store.Store) {
	if !st.Ready() {
		return
	}
	n, err := st.Count()
	if err != nil {
		logger.Error("monitor_count_failed", "error", err)
		return
	}
	disk := st.DiskUsage()
	store.MetricMessages.Set(float64(n))
	store.MetricDiskBytes.Set(float64(disk))
	logger.Info("store_stats", "messages", n, "disk_bytes", disk)
}
