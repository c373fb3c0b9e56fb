package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cynaps/labelstate/internal/config"
)

const azurite = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

// requiredEnv supplies the settings that have no defaults.
func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvLabelstateEnv, "")
	t.Setenv("LABELSTATE_DB_NAME", "labelstate")
	t.Setenv("LABELSTATE_DB_USER", "labelstate")
	t.Setenv("LABELSTATE_STORAGE_CONNECTION_STRING", azurite)
	t.Setenv("LABELSTATE_DRAFTS_IN_MEMORY", "true")
}

func TestLoadFromDefaults(t *testing.T) {
	requiredEnv(t)

	cfg, err := config.LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("addr: got %s, want 0.0.0.0:8080", got)
	}
	if got := cfg.Server.MaxHeaderBytes(); got != 1<<20 {
		t.Errorf("max header bytes: got %d, want %d", got, 1<<20)
	}
	if got := cfg.Server.IdleTimeoutDuration(); got != 2*time.Minute {
		t.Errorf("idle timeout: got %v, want 2m", got)
	}
	if got := cfg.API.MaxUploadSizeBytes(); got != 10<<20 {
		t.Errorf("max upload: got %d, want %d", got, 10<<20)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("base path: got %s, want /api", cfg.API.BasePath)
	}
	if cfg.Sessions.MaxOpen != 256 || cfg.Sessions.IdleTimeoutDuration() != 30*time.Minute {
		t.Errorf("sessions: got %+v", cfg.Sessions)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging: got %+v", cfg.Logging)
	}
	if cfg.Env() != "local" {
		t.Errorf("env: got %s, want local", cfg.Env())
	}
}

func TestLoadFromFileAndOverlay(t *testing.T) {
	requiredEnv(t)
	dir := t.TempDir()

	writeFile(t, dir, "config.toml", `
version = "1.4.0"

[server]
port = 9000
max_header_size = "64KiB"

[sessions]
max_open = 32
idle_timeout = "5m"

[api]
max_upload_size = "2MB"

[api.pagination]
default_page_size = 10
`)
	writeFile(t, dir, "config.staging.toml", `
[server]
port = 9100

[logging]
format = "json"
`)
	t.Setenv(config.EnvLabelstateEnv, "staging")

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Version != "1.4.0" {
		t.Errorf("version: got %s, want 1.4.0", cfg.Version)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port: got %d, want overlay 9100", cfg.Server.Port)
	}
	if got := cfg.Server.MaxHeaderBytes(); got != 64<<10 {
		t.Errorf("max header bytes: got %d, want %d", got, 64<<10)
	}
	if cfg.Sessions.MaxOpen != 32 || cfg.Sessions.HistoryLimit != 50 {
		t.Errorf("sessions: got %+v", cfg.Sessions)
	}
	if got := cfg.API.MaxUploadSizeBytes(); got != 2_000_000 {
		t.Errorf("max upload: got %d, want 2000000", got)
	}
	if cfg.API.Pagination.DefaultPageSize != 10 || cfg.API.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination: got %+v", cfg.API.Pagination)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("log format: got %s, want json", cfg.Logging.Format)
	}
}

func TestLoadFromEnvOverridesFile(t *testing.T) {
	requiredEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", "[server]\nport = 9000\n")

	t.Setenv(config.EnvServerPort, "9200")
	t.Setenv(config.EnvSessionsIdleTimeout, "0s")
	t.Setenv(config.EnvLogLevel, "debug")

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("port: got %d, want 9200", cfg.Server.Port)
	}
	if cfg.Sessions.IdleTimeoutDuration() != 0 {
		t.Errorf("idle timeout: got %v, want 0", cfg.Sessions.IdleTimeoutDuration())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level: got %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadFromErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{
			name: "unknown key",
			file: "[server]\nprot = 9000\n",
			want: "prot",
		},
		{
			name: "malformed toml",
			file: "[server\n",
			want: "parse config",
		},
		{
			name: "bad header size",
			file: "[server]\nmax_header_size = \"lots\"\n",
			want: "max_header_size",
		},
		{
			name: "tiny header size",
			file: "[server]\nmax_header_size = \"1KiB\"\n",
			want: "at least 4KiB",
		},
		{
			name: "bad log level",
			env:  map[string]string{config.EnvLogLevel: "chatty"},
			want: "invalid log level",
		},
		{
			name: "bad log format",
			env:  map[string]string{config.EnvLogFormat: "xml"},
			want: "invalid log format",
		},
		{
			name: "bad upload size",
			env:  map[string]string{"LABELSTATE_API_MAX_UPLOAD_SIZE": "huge"},
			want: "max_upload_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, dir, "config.toml", tt.file)
			}

			_, err := config.LoadFrom(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadUsesConfigDir(t *testing.T) {
	requiredEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", "version = \"9.9.9\"\n")
	t.Setenv(config.EnvLabelstateConfigDir, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != "9.9.9" {
		t.Errorf("version: got %s, want 9.9.9", cfg.Version)
	}
}

func TestLoggingNewLogger(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"text", "level=WARN"},
		{"json", `"level":"WARN"`},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := config.LoggingConfig{Level: "warn", Format: tt.format}
			var buf bytes.Buffer
			logger := cfg.NewLogger(&buf)

			logger.Info("dropped")
			logger.Warn("kept")

			out := buf.String()
			if strings.Contains(out, "dropped") {
				t.Errorf("info logged at warn level: %s", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q missing %q", out, tt.want)
			}
		})
	}
}
