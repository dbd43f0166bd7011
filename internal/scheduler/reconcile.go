package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// ReconcileBalancesJob recomputes every account's balances and persists drift.
func (s *Scheduler) ReconcileBalancesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	summary, err := s.reconciler.ReconcileAll(ctx, s.cfg.BatchSize)
	run.AddProcessed(summary.Scanned)
	s.metrics.AddBatchProcessed(JobReconcileBalances, "ad_account", summary.Scanned)
	if summary.Corrected > 0 {
		s.logger(ctx).Info("scheduler.balances.corrected",
			zap.Int("scanned", summary.Scanned),
			zap.Int("corrected", summary.Corrected),
		)
	}
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.balances.reconcile_failed", JobReconcileBalances, err,
			zap.Int("failed", summary.Failed),
		)
	}
	return err
}
