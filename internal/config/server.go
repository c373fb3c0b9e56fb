package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	EnvServerHost              = "LABELSTATE_SERVER_HOST"
	EnvServerPort              = "LABELSTATE_SERVER_PORT"
	EnvServerReadTimeout       = "LABELSTATE_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "LABELSTATE_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "LABELSTATE_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "LABELSTATE_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "LABELSTATE_SERVER_SHUTDOWN_TIMEOUT"
	EnvServerMaxHeaderSize     = "LABELSTATE_SERVER_MAX_HEADER_SIZE"
)

// ServerConfig configures the HTTP listener. Durations use time.ParseDuration
// syntax and MaxHeaderSize accepts sizes like "64KiB".
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
	MaxHeaderSize     string `toml:"max_header_size"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return duration(c.ReadTimeout)
}

// ReadHeaderTimeoutDuration returns ReadHeaderTimeout as a time.Duration.
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return duration(c.ReadHeaderTimeout)
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return duration(c.WriteTimeout)
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return duration(c.IdleTimeout)
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// MaxHeaderBytes returns MaxHeaderSize in bytes.
func (c *ServerConfig) MaxHeaderBytes() int {
	n, _ := humanize.ParseBytes(c.MaxHeaderSize)
	return int(n)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range c.stringFields(overlay) {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

type stringField struct {
	dst, src *string
	env      string
	def      string
}

// stringFields pairs each string setting with its overlay value, env var
// and default. overlay may be nil when only env and defaults matter.
func (c *ServerConfig) stringFields(overlay *ServerConfig) []stringField {
	if overlay == nil {
		overlay = &ServerConfig{}
	}
	return []stringField{
		{&c.Host, &overlay.Host, EnvServerHost, "0.0.0.0"},
		{&c.ReadTimeout, &overlay.ReadTimeout, EnvServerReadTimeout, "30s"},
		{&c.ReadHeaderTimeout, &overlay.ReadHeaderTimeout, EnvServerReadHeaderTimeout, "10s"},
		{&c.WriteTimeout, &overlay.WriteTimeout, EnvServerWriteTimeout, "1m"},
		{&c.IdleTimeout, &overlay.IdleTimeout, EnvServerIdleTimeout, "2m"},
		{&c.ShutdownTimeout, &overlay.ShutdownTimeout, EnvServerShutdownTimeout, "30s"},
		{&c.MaxHeaderSize, &overlay.MaxHeaderSize, EnvServerMaxHeaderSize, "1MiB"},
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, f := range c.stringFields(nil) {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, f := range c.stringFields(nil) {
		if v := os.Getenv(f.env); v != "" {
			*f.dst = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	names := map[string]*string{
		"read_timeout":        &c.ReadTimeout,
		"read_header_timeout": &c.ReadHeaderTimeout,
		"write_timeout":       &c.WriteTimeout,
		"idle_timeout":        &c.IdleTimeout,
		"shutdown_timeout":    &c.ShutdownTimeout,
	}
	for name, v := range names {
		if _, err := time.ParseDuration(*v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	n, err := humanize.ParseBytes(c.MaxHeaderSize)
	if err != nil {
		return fmt.Errorf("invalid max_header_size: %w", err)
	}
	if n < 4*humanize.KiByte {
		return fmt.Errorf("max_header_size must be at least 4KiB")
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
