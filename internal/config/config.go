// Package config holds the tunable knobs consumed from the environment or
// CLI, and the RetryPolicy derived from them.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names for the tunables below.
const (
	EnvMaxRetries      = "DVUPLOADER_MAX_RETRIES"
	EnvMaxRetryTime    = "DVUPLOADER_MAX_RETRY_TIME"
	EnvMinRetryTime    = "DVUPLOADER_MIN_RETRY_TIME"
	EnvRetryMultiplier = "DVUPLOADER_RETRY_MULTIPLIER"
	EnvMaxPkgSize      = "DVUPLOADER_MAX_PKG_SIZE"
	EnvLockWaitTime    = "DVUPLOADER_LOCK_WAIT_TIME"
	EnvLockTimeout     = "DVUPLOADER_LOCK_TIMEOUT"
	EnvMaxFileDisplay  = "DVUPLOADER_MAX_FILE_DISPLAY"
)

// Rate-limit pauses. Empirical; tune by observation, do not remove.
const (
	NativeSuccessPause = 700 * time.Millisecond
	NativeFailurePause = 1000 * time.Millisecond
)

// Default values.
const (
	DefaultMaxRetries      = 15
	DefaultMaxRetryTime    = 240 * time.Second
	DefaultMinRetryTime    = 1 * time.Second
	DefaultRetryMultiplier = 2.0
	DefaultMaxPkgSize      = 2 * 1024 * 1024 * 1024 // 2 GiB
	DefaultLockWaitTime    = 1 * time.Second
	DefaultLockTimeout     = 5 * time.Minute
	DefaultMaxFileDisplay  = 50
)

// RetryPolicy implements an exponential-wait formula:
// wait = min(MaxRetryTime, MinRetryTime * Multiplier^attempt), bounded by
// MaxAttempts.
type RetryPolicy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// Wait returns the backoff duration for the given zero-based attempt.
func (p RetryPolicy) Wait(attempt int) time.Duration {
	wait := float64(p.MinWait)
	for i := 0; i < attempt; i++ {
		wait *= p.Multiplier
	}
	max := float64(p.MaxWait)
	if wait > max {
		wait = max
	}
	return time.Duration(wait)
}

// Config bundles every tunable the orchestrator and drivers consume.
type Config struct {
	Retry           RetryPolicy
	MaxPackageSize  int64
	LockWaitTime    time.Duration
	LockTimeout     time.Duration
	MaxFileDisplay  int
	Concurrency     int
}

// FromEnv builds a Config from the environment variables above, falling
// back to defaults for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts: envInt(EnvMaxRetries, DefaultMaxRetries),
			MinWait:     envSeconds(EnvMinRetryTime, DefaultMinRetryTime),
			MaxWait:     envSeconds(EnvMaxRetryTime, DefaultMaxRetryTime),
			Multiplier:  envFloat(EnvRetryMultiplier, DefaultRetryMultiplier),
		},
		MaxPackageSize: envInt64(EnvMaxPkgSize, DefaultMaxPkgSize),
		LockWaitTime:   envSeconds(EnvLockWaitTime, DefaultLockWaitTime),
		LockTimeout:    envSeconds(EnvLockTimeout, DefaultLockTimeout),
		MaxFileDisplay: envInt(EnvMaxFileDisplay, DefaultMaxFileDisplay),
		Concurrency:    8,
	}
}

// Option mutates a Config during construction as an idiomatic Go functional
// option, rather than process-wide environment mutation.
type Option func(*Config)

// WithMaxRetries overrides the maximum number of native-upload attempts.
func WithMaxRetries(n int) Option { return func(c *Config) { c.Retry.MaxAttempts = n } }

// WithMaxPackageSize overrides the native-path package size bound.
func WithMaxPackageSize(n int64) Option { return func(c *Config) { c.MaxPackageSize = n } }

// WithConcurrency overrides the bounded fan-out width.
func WithConcurrency(n int) Option { return func(c *Config) { c.Concurrency = n } }

// WithLockTimeout overrides the dataset-lock wait timeout.
func WithLockTimeout(d time.Duration) Option { return func(c *Config) { c.LockTimeout = d } }

// New builds a Config starting from the environment and applying opts.
func New(opts ...Option) Config {
	c := FromEnv()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(name string, def int64) int64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return n
}

func envSeconds(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return time.Duration(n * float64(time.Second))
}
