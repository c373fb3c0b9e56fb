package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
)

// MaxListCap is the largest page size accepted by List.
const MaxListCap int32 = 5000

const (
	defaultContainer   = "exports"
	defaultListSize    = 50
	defaultBlockSize   = "4MiB"
	defaultConcurrency = 2
)

// Config holds Azure Blob Storage connection and transfer settings.
type Config struct {
	ContainerName     string `toml:"container_name"`
	ConnectionString  string `toml:"connection_string"`
	MaxListSize       int32  `toml:"max_list_size"`
	UploadBlockSize   string `toml:"upload_block_size"`
	UploadConcurrency int    `toml:"upload_concurrency"`
}

// Env names the environment variables that override Config fields.
// Empty names are not consulted.
type Env struct {
	ContainerName     string
	ConnectionString  string
	MaxListSize       string
	UploadBlockSize   string
	UploadConcurrency string
}

// Finalize applies defaults, then env overrides, then validates.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields that are set in overlay.
func (c *Config) Merge(overlay *Config) {
	mergeString(&c.ContainerName, overlay.ContainerName)
	mergeString(&c.ConnectionString, overlay.ConnectionString)
	mergeString(&c.UploadBlockSize, overlay.UploadBlockSize)
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
	if overlay.UploadConcurrency != 0 {
		c.UploadConcurrency = overlay.UploadConcurrency
	}
}

// BlockSizeBytes returns the staged block size used for streamed uploads.
func (c *Config) BlockSizeBytes() int64 {
	n, err := humanize.ParseBytes(c.UploadBlockSize)
	if err != nil || n == 0 {
		n, _ = humanize.ParseBytes(defaultBlockSize)
	}
	return int64(n)
}

func (c *Config) loadDefaults() {
	if c.ContainerName == "" {
		c.ContainerName = defaultContainer
	}
	if c.MaxListSize <= 0 {
		c.MaxListSize = defaultListSize
	}
	c.MaxListSize = min(c.MaxListSize, MaxListCap)
	if c.UploadBlockSize == "" {
		c.UploadBlockSize = defaultBlockSize
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = defaultConcurrency
	}
}

func (c *Config) loadEnv(env *Env) {
	if v, ok := lookup(env.ContainerName); ok {
		c.ContainerName = v
	}
	if v, ok := lookup(env.ConnectionString); ok {
		c.ConnectionString = v
	}
	if v, ok := lookup(env.UploadBlockSize); ok {
		c.UploadBlockSize = v
	}
	if v, ok := lookup(env.MaxListSize); ok {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil && n > 0 {
			c.MaxListSize = min(int32(n), MaxListCap)
		}
	}
	if v, ok := lookup(env.UploadConcurrency); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.UploadConcurrency = n
		}
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.ContainerName == "" {
		errs = append(errs, errors.New("container_name required"))
	}
	if c.ConnectionString == "" {
		errs = append(errs, errors.New("connection_string required"))
	}
	if _, err := humanize.ParseBytes(c.UploadBlockSize); err != nil {
		errs = append(errs, fmt.Errorf("upload_block_size: %w", err))
	}
	return errors.Join(errs...)
}

func lookup(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v := os.Getenv(name)
	return v, v != ""
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
