package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/cynaps/labelstate/pkg/database"
	"github.com/cynaps/labelstate/pkg/drafts"
	"github.com/cynaps/labelstate/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLabelstateEnv             = "LABELSTATE_ENV"
	EnvLabelstateConfigDir       = "LABELSTATE_CONFIG_DIR"
	EnvLabelstateShutdownTimeout = "LABELSTATE_SHUTDOWN_TIMEOUT"
	EnvLabelstateVersion         = "LABELSTATE_VERSION"
)

// DatabaseEnv maps database settings to LABELSTATE_DB_* variables. The
// migrate command shares it so both binaries resolve the same database.
var DatabaseEnv = &database.Env{
	URL:             "LABELSTATE_DB_URL",
	Host:            "LABELSTATE_DB_HOST",
	Port:            "LABELSTATE_DB_PORT",
	Name:            "LABELSTATE_DB_NAME",
	User:            "LABELSTATE_DB_USER",
	Password:        "LABELSTATE_DB_PASSWORD",
	SSLMode:         "LABELSTATE_DB_SSL_MODE",
	ApplicationName: "LABELSTATE_DB_APPLICATION_NAME",
	MaxOpenConns:    "LABELSTATE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LABELSTATE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LABELSTATE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LABELSTATE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:     "LABELSTATE_STORAGE_CONTAINER_NAME",
	ConnectionString:  "LABELSTATE_STORAGE_CONNECTION_STRING",
	MaxListSize:       "LABELSTATE_STORAGE_MAX_LIST_SIZE",
	UploadBlockSize:   "LABELSTATE_STORAGE_UPLOAD_BLOCK_SIZE",
	UploadConcurrency: "LABELSTATE_STORAGE_UPLOAD_CONCURRENCY",
}

var draftsEnv = &drafts.Env{
	Path:           "LABELSTATE_DRAFTS_PATH",
	InMemory:       "LABELSTATE_DRAFTS_IN_MEMORY",
	TTL:            "LABELSTATE_DRAFTS_TTL",
	GCInterval:     "LABELSTATE_DRAFTS_GC_INTERVAL",
	GCDiscardRatio: "LABELSTATE_DRAFTS_GC_DISCARD_RATIO",
}

// Config is the root configuration for the labelstate service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Logging         LoggingConfig   `toml:"logging"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Drafts          drafts.Config   `toml:"drafts"`
	Sessions        SessionsConfig  `toml:"sessions"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the LABELSTATE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLabelstateEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads configuration from LABELSTATE_CONFIG_DIR, or the working
// directory when unset. See LoadFrom.
func Load() (*Config, error) {
	dir := os.Getenv(EnvLabelstateConfigDir)
	if dir == "" {
		dir = "."
	}
	return LoadFrom(dir)
}

// LoadFrom reads dir/config.toml (if present), merges dir/config.<env>.toml
// for the current LABELSTATE_ENV, and finalizes all values. Without any
// file, defaults and environment variables provide all configuration.
// Unknown keys in either file are rejected.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{}

	base := filepath.Join(dir, BaseConfigFile)
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Logging.Merge(&overlay.Logging)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Drafts.Merge(&overlay.Drafts)
	c.Sessions.Merge(&overlay.Sessions)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Database.Finalize(DatabaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Drafts.Finalize(draftsEnv); err != nil {
		return fmt.Errorf("drafts: %w", err)
	}
	if err := c.Sessions.Finalize(); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLabelstateShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLabelstateVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, len(strict.Errors))
			for i, e := range strict.Errors {
				keys[i] = strings.Join(e.Key(), ".")
			}
			return nil, fmt.Errorf("parse config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvLabelstateEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
