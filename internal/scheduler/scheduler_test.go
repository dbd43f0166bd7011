package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/adledger/internal/clock"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	reconciledomain "github.com/smallbiznis/adledger/internal/reconcile/domain"
	settlementdomain "github.com/smallbiznis/adledger/internal/settlement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockReconciler struct {
	mock.Mock
	calls *[]string
}

func (m *mockReconciler) ReconcileAccount(ctx context.Context, accountID snowflake.ID) (reconciledomain.Result, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(reconciledomain.Result), args.Error(1)
}

func (m *mockReconciler) Reconcile(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) (reconciledomain.Result, error) {
	args := m.Called(ctx, tx, accountID)
	return args.Get(0).(reconciledomain.Result), args.Error(1)
}

func (m *mockReconciler) ReconcileAll(ctx context.Context, batchSize int) (reconciledomain.Summary, error) {
	*m.calls = append(*m.calls, JobReconcileBalances)
	args := m.Called(ctx, batchSize)
	return args.Get(0).(reconciledomain.Summary), args.Error(1)
}

type mockSettlements struct {
	mock.Mock
	calls *[]string
}

func (m *mockSettlements) Settle(ctx context.Context, req settlementdomain.SettleRequest) (settlementdomain.SettleResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(settlementdomain.SettleResult), args.Error(1)
}

func (m *mockSettlements) SettleMonth(ctx context.Context, accountID snowflake.ID, month string) (settlementdomain.SettleResult, error) {
	args := m.Called(ctx, accountID, month)
	return args.Get(0).(settlementdomain.SettleResult), args.Error(1)
}

func (m *mockSettlements) RecoverStaged(ctx context.Context, olderThan time.Duration, limit int) (settlementdomain.RecoverySummary, error) {
	*m.calls = append(*m.calls, JobRecoverSettlements)
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).(settlementdomain.RecoverySummary), args.Error(1)
}

type fixture struct {
	sched       *Scheduler
	registry    *prometheus.Registry
	reconciler  *mockReconciler
	settlements *mockSettlements
	calls       *[]string
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	calls := &[]string{}
	registry := prometheus.NewRegistry()
	reconciler := &mockReconciler{calls: calls}
	settlements := &mockSettlements{calls: calls}
	sched, err := New(Params{
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
		Reconciler:  reconciler,
		Settlements: settlements,
		Config:      cfg,
		Metrics:     obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{ServiceName: "adledger", Environment: "test"}),
	})
	require.NoError(t, err)
	return fixture{sched: sched, registry: registry, reconciler: reconciler, settlements: settlements, calls: calls}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRecoversBeforeReconciling(t *testing.T) {
	f := newFixture(t, Config{BatchSize: 25, RecoveryThreshold: 3 * time.Minute})
	f.settlements.On("RecoverStaged", mock.Anything, 3*time.Minute, 25).
		Return(settlementdomain.RecoverySummary{Scanned: 2, Recovered: 2}, nil)
	f.reconciler.On("ReconcileAll", mock.Anything, 25).
		Return(reconciledomain.Summary{Scanned: 7, Corrected: 1}, nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, []string{JobRecoverSettlements, JobReconcileBalances}, *f.calls)
	f.settlements.AssertExpectations(t)
	f.reconciler.AssertExpectations(t)

	assert.Equal(t, float64(7), counterValue(t, f.registry, "adledger_scheduler_batch_processed_total",
		map[string]string{"job": JobReconcileBalances, "resource": "ad_account"}))
	assert.Equal(t, float64(2), counterValue(t, f.registry, "adledger_scheduler_batch_processed_total",
		map[string]string{"job": JobRecoverSettlements, "resource": "settlement_batch"}))
	assert.Equal(t, float64(1), counterValue(t, f.registry, "adledger_scheduler_job_runs_total",
		map[string]string{"job": JobReconcileBalances}))
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	f := newFixture(t, Config{})
	boom := errors.New("boom")
	f.settlements.On("RecoverStaged", mock.Anything, DefaultConfig().RecoveryThreshold, DefaultConfig().BatchSize).
		Return(settlementdomain.RecoverySummary{}, boom)
	f.reconciler.On("ReconcileAll", mock.Anything, DefaultConfig().BatchSize).
		Return(reconciledomain.Summary{Scanned: 1}, nil)

	err := f.sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobRecoverSettlements)
	assert.Len(t, *f.calls, 2, "a failing job does not stop the next one")

	assert.Equal(t, float64(1), counterValue(t, f.registry, "adledger_scheduler_job_errors_total",
		map[string]string{"job": JobRecoverSettlements, "reason": obsmetrics.SchedulerJobReasonUnknown}))
}

func TestRunOnceHonorsEnabledJobs(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{"RECONCILE_BALANCES"}})
	f.reconciler.On("ReconcileAll", mock.Anything, mock.Anything).Return(reconciledomain.Summary{}, nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, []string{JobReconcileBalances}, *f.calls)
	f.settlements.AssertNotCalled(t, "RecoverStaged", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunJobTimeoutDoesNotReturnError(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.sched.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	assert.Equal(t, float64(1), counterValue(t, f.registry, "adledger_scheduler_job_timeouts_total",
		map[string]string{"job": "timeout_job"}))
	assert.Equal(t, float64(1), counterValue(t, f.registry, "adledger_scheduler_job_errors_total",
		map[string]string{"job": "timeout_job", "reason": obsmetrics.SchedulerJobReasonDeadlineExceeded}))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	f := newFixture(t, Config{RunInterval: time.Hour})
	f.settlements.On("RecoverStaged", mock.Anything, mock.Anything, mock.Anything).Return(settlementdomain.RecoverySummary{}, nil)
	ran := make(chan struct{}, 1)
	f.reconciler.On("ReconcileAll", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { ran <- struct{}{} }).
		Return(reconciledomain.Summary{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sched.RunForever(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.Metric {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

// labelsMatch ignores the service and env const labels.
func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, label := range metric.Label {
		want, ok := labels[label.GetName()]
		if !ok {
			continue
		}
		if want != label.GetValue() {
			return false
		}
		matched++
	}
	return matched == len(labels)
}
