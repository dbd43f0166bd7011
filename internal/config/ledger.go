package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	WriteoffRatePolicyConsumption = "consumption_rate"
	WriteoffRatePolicyReceivable  = "receivable_rate"
)

// LedgerPolicy holds the tunable rules of the rebate ledger.
type LedgerPolicy struct {
	WriteoffRatePolicy string          `mapstructure:"writeoffRatePolicy"`
	BalanceEpsilon     decimal.Decimal `mapstructure:"-"`
	BalanceEpsilonRaw  string          `mapstructure:"balanceEpsilon"`
}

type LedgerPolicyHolder struct {
	current atomic.Value // holds LedgerPolicy
}

// NewStaticLedgerPolicyHolder returns a holder that never reloads.
func NewStaticLedgerPolicyHolder(policy LedgerPolicy) *LedgerPolicyHolder {
	holder := &LedgerPolicyHolder{}
	holder.current.Store(normalizeLedgerPolicy(policy))
	return holder
}

// NewLedgerPolicyHolder seeds the policy from env config and, when LEDGER_POLICY_FILE is set,
// overlays the file and reloads it on change.
func NewLedgerPolicyHolder(cfg Config, log *zap.Logger) (*LedgerPolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	defaults := LedgerPolicy{
		WriteoffRatePolicy: cfg.Ledger.WriteoffRatePolicy,
		BalanceEpsilon:     cfg.Ledger.BalanceEpsilon,
	}
	if err := validateLedgerPolicy(normalizeLedgerPolicy(defaults)); err != nil {
		return nil, err
	}
	if cfg.Ledger.PolicyFile == "" {
		return NewStaticLedgerPolicyHolder(defaults), nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.Ledger.PolicyFile)
	v.SetDefault("ledger.writeoffRatePolicy", defaults.WriteoffRatePolicy)
	v.SetDefault("ledger.balanceEpsilon", defaults.BalanceEpsilon.String())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	policy, err := readLedgerPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &LedgerPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := readLedgerPolicy(v)
		if err != nil {
			log.Warn("ledger policy reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("ledger policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *LedgerPolicyHolder) Get() LedgerPolicy {
	return h.current.Load().(LedgerPolicy)
}

func readLedgerPolicy(v *viper.Viper) (LedgerPolicy, error) {
	var policy LedgerPolicy
	if err := v.UnmarshalKey("ledger", &policy); err != nil {
		return LedgerPolicy{}, err
	}
	if raw := strings.TrimSpace(policy.BalanceEpsilonRaw); raw != "" {
		epsilon, err := decimal.NewFromString(raw)
		if err != nil {
			return LedgerPolicy{}, errors.New("ledger.balanceEpsilon must be a decimal")
		}
		policy.BalanceEpsilon = epsilon
	}
	policy = normalizeLedgerPolicy(policy)
	if err := validateLedgerPolicy(policy); err != nil {
		return LedgerPolicy{}, err
	}
	return policy, nil
}

func normalizeLedgerPolicy(policy LedgerPolicy) LedgerPolicy {
	policy.WriteoffRatePolicy = strings.ToLower(strings.TrimSpace(policy.WriteoffRatePolicy))
	if policy.WriteoffRatePolicy == "" {
		policy.WriteoffRatePolicy = WriteoffRatePolicyConsumption
	}
	if policy.BalanceEpsilon.IsZero() {
		policy.BalanceEpsilon = decimal.RequireFromString("0.01")
	}
	return policy
}

func validateLedgerPolicy(policy LedgerPolicy) error {
	switch policy.WriteoffRatePolicy {
	case WriteoffRatePolicyConsumption, WriteoffRatePolicyReceivable:
	default:
		return errors.New("ledger.writeoffRatePolicy must be consumption_rate or receivable_rate")
	}
	if policy.BalanceEpsilon.IsNegative() {
		return errors.New("ledger.balanceEpsilon cannot be negative")
	}
	return nil
}
