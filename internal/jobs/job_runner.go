package jobs

import (
	"context"
	"time"

	"equiptrack-backend/internal/config"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	inventory service.InventoryService
	config    *config.Config
	timeout   time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(inventory service.InventoryService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		inventory: inventory,
		config:    cfg,
		timeout:   5 * time.Minute,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	jobFunc(ctx)
	logger.Info("Job completed", "job", jobName)
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.MarkOverdueCheckouts()
	jr.ReconcileAvailability()
}

// MarkOverdueCheckouts flips active checkouts past their due day to overdue.
// The service sends one notification per flipped checkout.
func (jr *JobRunner) MarkOverdueCheckouts() {
	jr.runWithRecovery("MarkOverdueCheckouts", func(ctx context.Context) {
		changed, err := jr.inventory.MarkOverdue(ctx)
		if err != nil {
			logger.Error("Failed to mark overdue checkouts", "error", err)
			return
		}
		logger.Info("Marked checkouts as overdue", "count", len(changed))
	})
}

// ReconcileAvailability rebuilds the cached stock counters from the
// checkout records and corrects any drift.
func (jr *JobRunner) ReconcileAvailability() {
	jr.runWithRecovery("ReconcileAvailability", func(ctx context.Context) {
		adjustments, err := jr.inventory.Reconcile(ctx)
		if err != nil {
			logger.Error("Failed to reconcile availability", "error", err)
			return
		}
		if len(adjustments) > 0 {
			logger.Warn("Availability drift corrected", "records", len(adjustments))
			return
		}
		logger.Info("Availability counters consistent")
	})
}
