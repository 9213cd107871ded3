package scheduler

import "time"

// Config controls sweep cadence and batch sizes.
type Config struct {
	SweepInterval      time.Duration
	TokenBatchSize     int
	ThreadBatchSize    int
	PerTokenTimeout    time.Duration
	PerSweepMaxRuntime time.Duration
}

func DefaultConfig() Config {
	return Config{
		SweepInterval:      5 * time.Minute,
		TokenBatchSize:     200,
		ThreadBatchSize:    200,
		PerTokenTimeout:    5 * time.Second,
		PerSweepMaxRuntime: time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaults.SweepInterval
	}
	if c.TokenBatchSize <= 0 {
		c.TokenBatchSize = defaults.TokenBatchSize
	}
	if c.ThreadBatchSize <= 0 {
		c.ThreadBatchSize = defaults.ThreadBatchSize
	}
	if c.PerTokenTimeout <= 0 {
		c.PerTokenTimeout = defaults.PerTokenTimeout
	}
	if c.PerSweepMaxRuntime <= 0 {
		c.PerSweepMaxRuntime = defaults.PerSweepMaxRuntime
	}
	return c
}
