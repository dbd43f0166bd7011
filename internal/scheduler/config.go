package scheduler

import (
	"time"

	"github.com/smallbiznis/adledger/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled           bool
	RunInterval       time.Duration
	BatchSize         int
	RecoveryThreshold time.Duration
	JobTimeout        time.Duration
	EnabledJobs       []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RunInterval:       time.Minute,
		BatchSize:         100,
		RecoveryThreshold: 2 * time.Minute,
		JobTimeout:        30 * time.Second,
	}
}

// ProvideConfig maps application config onto the scheduler.
func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:           cfg.Scheduler.Enabled,
		RunInterval:       cfg.Scheduler.RunInterval,
		BatchSize:         cfg.Scheduler.BatchSize,
		RecoveryThreshold: cfg.Scheduler.RecoveryThreshold,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.RecoveryThreshold <= 0 {
		c.RecoveryThreshold = defaults.RecoveryThreshold
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
