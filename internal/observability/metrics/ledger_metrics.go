package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	WriteoffOutcomePartial = "partial"
	WriteoffOutcomeSettled = "settled"

	SettlementResultApplied    = "applied"
	SettlementResultReplayed   = "replayed"
	SettlementResultRecovered  = "recovered"
	SettlementResultSuperseded = "superseded"

	BillUpsertCreated   = "created"
	BillUpsertMerged    = "merged"
	BillUpsertReplayed  = "replayed"
	BillUpsertRetracted = "retracted"
)

// LedgerMetrics captures rebate ledger throughput and self-healing signals.
type LedgerMetrics struct {
	recharges        *prometheus.CounterVec
	consumptions     *prometheus.CounterVec
	writeoffs        *prometheus.CounterVec
	settlements      *prometheus.CounterVec
	driftCorrections prometheus.Counter
	billUpserts      *prometheus.CounterVec
	lockWait         prometheus.Observer
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics registered on the default registerer.
func Ledger() *LedgerMetrics {
	return LedgerWithConfig(Config{})
}

// LedgerWithConfig returns the ledger metrics singleton using config labels.
func LedgerWithConfig(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = NewLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

// NewLedgerMetrics registers ledger instruments on registerer.
func NewLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	recharges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "adledger_recharges_total",
		Help:        "Confirmed ad account recharges.",
		ConstLabels: constLabels,
	}, []string{"currency"})
	consumptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "adledger_consumptions_total",
		Help:        "Confirmed ad account consumptions.",
		ConstLabels: constLabels,
	}, []string{"currency"})
	writeoffs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "adledger_rebate_writeoffs_total",
		Help:        "Rebate receivable write-off records appended, by resulting receivable state.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "adledger_settlement_batches_total",
		Help:        "Settlement batches by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	driftCorrections := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "adledger_balance_drift_corrections_total",
		Help:        "Ad account balances rewritten by the reconciler.",
		ConstLabels: constLabels,
	})
	billUpserts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "adledger_bill_upserts_total",
		Help:        "Draft bill aggregation calls by category and result.",
		ConstLabels: constLabels,
	}, []string{"category", "result"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "adledger_account_lock_wait_seconds",
		Help:        "Time spent waiting for the per-account ledger lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(recharges, consumptions, writeoffs, settlements, driftCorrections, billUpserts, lockWait)

	return &LedgerMetrics{
		recharges:        recharges,
		consumptions:     consumptions,
		writeoffs:        writeoffs,
		settlements:      settlements,
		driftCorrections: driftCorrections,
		billUpserts:      billUpserts,
		lockWait:         lockWait,
	}
}

func (m *LedgerMetrics) IncRecharge(currency string) {
	if m == nil {
		return
	}
	m.recharges.WithLabelValues(normalizeCurrency(currency)).Inc()
}

func (m *LedgerMetrics) IncConsumption(currency string) {
	if m == nil {
		return
	}
	m.consumptions.WithLabelValues(normalizeCurrency(currency)).Inc()
}

func (m *LedgerMetrics) IncWriteoff(outcome string) {
	if m == nil {
		return
	}
	m.writeoffs.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) IncSettlement(result string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(result).Inc()
}

func (m *LedgerMetrics) IncDriftCorrection() {
	if m == nil {
		return
	}
	m.driftCorrections.Inc()
}

func (m *LedgerMetrics) IncBillUpsert(category, result string) {
	if m == nil {
		return
	}
	m.billUpserts.WithLabelValues(category, result).Inc()
}

func (m *LedgerMetrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	m.lockWait.Observe(d.Seconds())
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "unknown"
	}
	return currency
}
