package scheduler

import (
	"time"
)

// Config controls run limits shared by every job.
type Config struct {
	// DefaultTimeout bounds jobs whose own config sets no timeout.
	DefaultTimeout time.Duration
	// LockTTL caps how long an exclusive job holds its lock if the holder dies.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultTimeout: time.Minute,
		LockTTL:        10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = defaults.DefaultTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
