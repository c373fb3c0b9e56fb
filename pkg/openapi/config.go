package openapi

import (
	"os"
	"strings"
)

// Config holds document metadata that is not derived from routes.
type Config struct {
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Servers     []string `toml:"servers"`
}

// ConfigEnv names the environment variables that override Config.
// Servers is read as a comma-separated list.
type ConfigEnv struct {
	Title       string
	Description string
	Servers     string
}

// Finalize applies defaults and environment overrides.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Labelstate API"
	}
	if c.Description == "" {
		c.Description = "Annotation result storage and classification editing sessions."
	}
	if env == nil {
		return nil
	}

	if v := getenv(env.Title); v != "" {
		c.Title = v
	}
	if v := getenv(env.Description); v != "" {
		c.Description = v
	}
	if v := getenv(env.Servers); v != "" {
		c.Servers = splitList(v)
	}
	return nil
}

// Merge overwrites fields that are set in overlay. A non-empty overlay
// server list replaces the base list.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
	if len(overlay.Servers) > 0 {
		c.Servers = overlay.Servers
	}
}

// Apply copies the description and additional server URLs onto spec.
func (c *Config) Apply(spec *Spec) {
	spec.SetDescription(c.Description)
	for _, url := range c.Servers {
		spec.AddServer(url)
	}
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func splitList(v string) []string {
	var out []string
	for s := range strings.SplitSeq(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
