package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// RecoverSettlementsJob applies settlement batches left staged past the recovery threshold.
func (s *Scheduler) RecoverSettlementsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	summary, err := s.settlements.RecoverStaged(ctx, s.cfg.RecoveryThreshold, s.cfg.BatchSize)
	run.AddProcessed(summary.Recovered)
	s.metrics.AddBatchProcessed(JobRecoverSettlements, "settlement_batch", summary.Recovered)
	if summary.Scanned > 0 {
		s.logger(ctx).Info("scheduler.settlements.recovered",
			zap.Int("scanned", summary.Scanned),
			zap.Int("recovered", summary.Recovered),
			zap.Int("superseded", summary.Superseded),
			zap.Int("failed", summary.Failed),
		)
	}
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.settlements.recovery_failed", JobRecoverSettlements, err)
	}
	return err
}
