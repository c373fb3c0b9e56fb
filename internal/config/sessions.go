package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvSessionsMaxOpen      = "LABELSTATE_SESSIONS_MAX_OPEN"
	EnvSessionsHistoryLimit = "LABELSTATE_SESSIONS_HISTORY_LIMIT"
	EnvSessionsIdleTimeout  = "LABELSTATE_SESSIONS_IDLE_TIMEOUT"
)

// SessionsConfig bounds the in-process editing session registry.
type SessionsConfig struct {
	MaxOpen      int    `toml:"max_open"`
	HistoryLimit int    `toml:"history_limit"`
	IdleTimeout  string `toml:"idle_timeout"`
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration. Zero disables eviction.
func (c *SessionsConfig) IdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SessionsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SessionsConfig) Merge(overlay *SessionsConfig) {
	if overlay.MaxOpen != 0 {
		c.MaxOpen = overlay.MaxOpen
	}
	if overlay.HistoryLimit != 0 {
		c.HistoryLimit = overlay.HistoryLimit
	}
	if overlay.IdleTimeout != "" {
		c.IdleTimeout = overlay.IdleTimeout
	}
}

func (c *SessionsConfig) loadDefaults() {
	if c.MaxOpen == 0 {
		c.MaxOpen = 256
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 50
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30m"
	}
}

func (c *SessionsConfig) loadEnv() {
	if v := os.Getenv(EnvSessionsMaxOpen); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxOpen = n
		}
	}
	if v := os.Getenv(EnvSessionsHistoryLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HistoryLimit = n
		}
	}
	if v := os.Getenv(EnvSessionsIdleTimeout); v != "" {
		c.IdleTimeout = v
	}
}

func (c *SessionsConfig) validate() error {
	if c.MaxOpen < 1 {
		return fmt.Errorf("max_open must be positive")
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive")
	}
	if d, err := time.ParseDuration(c.IdleTimeout); err != nil || d < 0 {
		return fmt.Errorf("invalid idle_timeout: %q", c.IdleTimeout)
	}
	return nil
}
