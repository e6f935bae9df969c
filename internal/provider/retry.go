package provider

import (
	"math"
	"time"
)

// RetryStrategy selects how the delay between attempts grows.
type RetryStrategy string

const (
	StrategyExponentialBackoff RetryStrategy = "exponential_backoff"
	StrategyFixedDelay         RetryStrategy = "fixed_delay"
)

// RetryConfig controls the retry loop around provider calls.
// Zero-valued fields fall back to the defaults from DefaultRetryConfig.
type RetryConfig struct {
	MaxAttempts     int
	Strategy        RetryStrategy
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
}

// DefaultRetryConfig returns the retry behavior clients use when no config
// is supplied: three attempts with exponential backoff capped at a minute.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		Strategy:        StrategyExponentialBackoff,
		InitialDelay:    time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
	}
}

// NoRetry returns a config that makes exactly one attempt.
func NoRetry() RetryConfig {
	c := DefaultRetryConfig()
	c.MaxAttempts = 1
	return c
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		d.MaxAttempts = c.MaxAttempts
	}
	if c.Strategy != "" {
		d.Strategy = c.Strategy
	}
	if c.InitialDelay > 0 {
		d.InitialDelay = c.InitialDelay
	}
	if c.MaxDelay > 0 {
		d.MaxDelay = c.MaxDelay
	}
	if c.ExponentialBase > 0 {
		d.ExponentialBase = c.ExponentialBase
	}
	return d
}

// DelayFor returns the sleep before retrying after the given zero-based
// failed attempt.
func (c RetryConfig) DelayFor(attempt int) time.Duration {
	c = c.withDefaults()
	switch c.Strategy {
	case StrategyFixedDelay:
		return c.InitialDelay
	default:
		delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.ExponentialBase, float64(attempt)))
		if delay > c.MaxDelay || delay <= 0 {
			return c.MaxDelay
		}
		return delay
	}
}
