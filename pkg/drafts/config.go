package drafts

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds settings for the embedded draft store.
type Config struct {
	Path           string  `toml:"path"`
	InMemory       bool    `toml:"in_memory"`
	TTL            string  `toml:"ttl"`
	GCInterval     string  `toml:"gc_interval"`
	GCDiscardRatio float64 `toml:"gc_discard_ratio"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Path           string
	InMemory       string
	TTL            string
	GCInterval     string
	GCDiscardRatio string
}

// TTLDuration returns TTL as a time.Duration. Zero keeps drafts until deleted.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// GCIntervalDuration returns GCInterval as a time.Duration.
func (c *Config) GCIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.GCInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. An overlay can switch the
// store to in-memory but not back; use the env override for that.
func (c *Config) Merge(overlay *Config) {
	if overlay.InMemory {
		c.InMemory = true
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.GCInterval != "" {
		c.GCInterval = overlay.GCInterval
	}
	if overlay.GCDiscardRatio != 0 {
		c.GCDiscardRatio = overlay.GCDiscardRatio
	}
}

func (c *Config) loadDefaults() {
	if c.Path == "" && !c.InMemory {
		c.Path = "data/drafts"
	}
	if c.TTL == "" {
		c.TTL = "168h"
	}
	if c.GCInterval == "" {
		c.GCInterval = "5m"
	}
	if c.GCDiscardRatio == 0 {
		c.GCDiscardRatio = 0.5
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Path != "" {
		if v := os.Getenv(env.Path); v != "" {
			c.Path = v
		}
	}
	if env.InMemory != "" {
		if v := os.Getenv(env.InMemory); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.InMemory = b
			}
		}
	}
	if env.TTL != "" {
		if v := os.Getenv(env.TTL); v != "" {
			c.TTL = v
		}
	}
	if env.GCInterval != "" {
		if v := os.Getenv(env.GCInterval); v != "" {
			c.GCInterval = v
		}
	}
	if env.GCDiscardRatio != "" {
		if v := os.Getenv(env.GCDiscardRatio); v != "" {
			if r, err := strconv.ParseFloat(v, 64); err == nil {
				c.GCDiscardRatio = r
			}
		}
	}
}

func (c *Config) validate() error {
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("path required unless in_memory")
	}
	if d, err := time.ParseDuration(c.TTL); err != nil || d < 0 {
		return fmt.Errorf("invalid ttl: %q", c.TTL)
	}
	if d, err := time.ParseDuration(c.GCInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid gc_interval: %q", c.GCInterval)
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return fmt.Errorf("gc_discard_ratio must be between 0 and 1")
	}
	return nil
}
