// Package config implements the functional-options-plus-env-var
// configuration idiom used throughout this codebase, grounded on
// gholt-valuestore's NewValuesStoreOpts (env fallback then clamp) and
// valuelocmap's resolveConfig(opts ...func(*config)) pattern.
package config

import (
	"log"
	"os"
	"strconv"
)

const envPrefix = "THEO2012_"

// LogFunc mirrors gholt-valuestore's logging signature used across every layer.
type LogFunc func(format string, v ...interface{})

func defaultLog(prefix string) LogFunc {
	l := log.New(os.Stderr, prefix, log.LstdFlags)
	return func(format string, v ...interface{}) { l.Printf(format, v...) }
}

// Config carries every tunable shared across layers. Individual layers may
// embed this or read the fields they care about; unlike gholt-valuestore's
// per-component Opts structs, one Config threads through Open calls at
// every layer.
type Config struct {
	MaxListSize int
	ReadOnly    bool

	LogCritical LogFunc
	LogError    LogFunc
	LogWarning  LogFunc
	LogInfo     LogFunc
	LogDebug    LogFunc
}

// Option mutates a Config being built by New.
type Option func(*Config)

// OptMaxListSize overrides the list-to-set promotion threshold. Defaults to
// env THEO2012_MAX_LIST_SIZE or 100.
func OptMaxListSize(n int) Option {
	return func(c *Config) { c.MaxListSize = n }
}

// OptReadOnly sets Config.ReadOnly. The layers take read-only mode from the
// StoreMap's own flag and do not read this field.
func OptReadOnly(ro bool) Option {
	return func(c *Config) { c.ReadOnly = ro }
}

// OptLogCritical overrides the critical-level log sink.
func OptLogCritical(f LogFunc) Option { return func(c *Config) { c.LogCritical = f } }

// OptLogError overrides the error-level log sink.
func OptLogError(f LogFunc) Option { return func(c *Config) { c.LogError = f } }

// OptLogWarning overrides the warning-level log sink.
func OptLogWarning(f LogFunc) Option { return func(c *Config) { c.LogWarning = f } }

// OptLogInfo overrides the info-level log sink.
func OptLogInfo(f LogFunc) Option { return func(c *Config) { c.LogInfo = f } }

// OptLogDebug overrides the debug-level log sink.
func OptLogDebug(f LogFunc) Option { return func(c *Config) { c.LogDebug = f } }

func envInt(name string, fallback int) int {
	if v := os.Getenv(envPrefix + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// New builds a Config from env vars first, then applies opts, then clamps
// to sane minimums -- gholt-valuestore's three-phase resolution order.
func New(opts ...Option) *Config {
	c := &Config{
		MaxListSize: envInt("MAX_LIST_SIZE", 100),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.MaxListSize < 1 {
		c.MaxListSize = 1
	}
	if c.LogCritical == nil {
		c.LogCritical = defaultLog("CRITICAL ")
	}
	if c.LogError == nil {
		c.LogError = defaultLog("ERROR ")
	}
	if c.LogWarning == nil {
		c.LogWarning = defaultLog("WARNING ")
	}
	if c.LogInfo == nil {
		c.LogInfo = defaultLog("INFO ")
	}
	if c.LogDebug == nil {
		c.LogDebug = func(string, ...interface{}) {} // silent by default
	}
	return c
}
