package config

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/cynaps/labelstate/pkg/middleware"
	"github.com/cynaps/labelstate/pkg/openapi"
	"github.com/cynaps/labelstate/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "LABELSTATE_CORS_ENABLED",
	Origins:          "LABELSTATE_CORS_ORIGINS",
	AllowedMethods:   "LABELSTATE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "LABELSTATE_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "LABELSTATE_CORS_EXPOSED_HEADERS",
	AllowCredentials: "LABELSTATE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "LABELSTATE_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "LABELSTATE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "LABELSTATE_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "LABELSTATE_OPENAPI_TITLE",
	Description: "LABELSTATE_OPENAPI_DESCRIPTION",
	Servers:     "LABELSTATE_OPENAPI_SERVERS",
}

// APIConfig holds API routing, CORS, pagination, and OpenAPI settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
	OpenAPI       openapi.Config        `toml:"openapi"`
}

const defaultMaxUploadSize = 10 * humanize.MiByte

// MaxUploadSizeBytes returns the request body limit for result payloads.
// Sizes accept SI ("10MB") and IEC ("10MiB") suffixes.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := humanize.ParseBytes(c.MaxUploadSize)
	if err != nil || size == 0 {
		return defaultMaxUploadSize
	}
	return int64(size)
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	size, err := humanize.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("max_upload_size: %w", err)
	}
	if size == 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "10MiB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("LABELSTATE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("LABELSTATE_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
}
