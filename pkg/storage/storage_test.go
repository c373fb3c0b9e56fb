package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/cynaps/labelstate/pkg/lifecycle"
	"github.com/cynaps/labelstate/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func newSystem(t *testing.T) storage.System {
	t.Helper()
	sys, err := storage.New(&storage.Config{
		ContainerName:    "exports",
		ConnectionString: azuriteConnString,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sys
}

func TestNewInvalidConnectionString(t *testing.T) {
	_, err := storage.New(&storage.Config{
		ContainerName:    "exports",
		ConnectionString: "not-a-connection-string",
	}, slog.Default())
	if err == nil {
		t.Fatal("expected error for invalid connection string, got nil")
	}
}

func TestKeyValidation(t *testing.T) {
	sys := newSystem(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty key", "", storage.ErrEmptyKey},
		{"traversal", "annotations/../secrets.json", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sys.Upload(ctx, tt.key, bytes.NewReader(nil), "application/json"); !errors.Is(err, tt.want) {
				t.Errorf("Upload error = %v, want %v", err, tt.want)
			}
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Download error = %v, want %v", err, tt.want)
			}
			if _, err := sys.Find(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Find error = %v, want %v", err, tt.want)
			}
			if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Delete error = %v, want %v", err, tt.want)
			}
			if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Exists error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"invalid max results", storage.ErrInvalidMaxResults, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("export: %w", storage.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int32
		wantErr bool
	}{
		{"empty returns fallback", "", 50, false},
		{"within cap", "100", 100, false},
		{"clamped to cap", "9999", storage.MaxListCap, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ParseMaxResults(tt.input, 50)
			if tt.wantErr {
				if !errors.Is(err, storage.ErrInvalidMaxResults) {
					t.Errorf("error = %v, want ErrInvalidMaxResults", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := storage.Config{ConnectionString: "conn"}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.ContainerName != "exports" {
			t.Errorf("container_name: got %s, want exports", cfg.ContainerName)
		}
		if cfg.MaxListSize != 50 {
			t.Errorf("max_list_size: got %d, want 50", cfg.MaxListSize)
		}
		if cfg.UploadConcurrency != 2 {
			t.Errorf("upload_concurrency: got %d, want 2", cfg.UploadConcurrency)
		}
		if got := cfg.BlockSizeBytes(); got != 4<<20 {
			t.Errorf("BlockSizeBytes() = %d, want %d", got, 4<<20)
		}
	})

	t.Run("block size", func(t *testing.T) {
		t.Setenv("TEST_BLOCK", "8MB")
		cfg := storage.Config{ConnectionString: "conn"}
		if err := cfg.Finalize(&storage.Env{UploadBlockSize: "TEST_BLOCK"}); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if got := cfg.BlockSizeBytes(); got != 8_000_000 {
			t.Errorf("BlockSizeBytes() = %d, want 8000000", got)
		}
	})

	t.Run("invalid block size", func(t *testing.T) {
		cfg := storage.Config{ConnectionString: "conn", UploadBlockSize: "lots"}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "upload_block_size") {
			t.Errorf("got %v, want upload_block_size error", err)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_CONTAINER", "results")
		t.Setenv("TEST_CONN", "override")
		t.Setenv("TEST_MAX_LIST", "99999")

		cfg := storage.Config{}
		err := cfg.Finalize(&storage.Env{
			ContainerName:    "TEST_CONTAINER",
			ConnectionString: "TEST_CONN",
			MaxListSize:      "TEST_MAX_LIST",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.ContainerName != "results" {
			t.Errorf("container_name: got %s, want results", cfg.ContainerName)
		}
		if cfg.ConnectionString != "override" {
			t.Errorf("connection_string: got %s, want override", cfg.ConnectionString)
		}
		if cfg.MaxListSize != storage.MaxListCap {
			t.Errorf("max_list_size: got %d, want %d", cfg.MaxListSize, storage.MaxListCap)
		}
	})

	t.Run("missing connection string", func(t *testing.T) {
		cfg := storage.Config{}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("merge", func(t *testing.T) {
		cfg := storage.Config{ContainerName: "a", ConnectionString: "c1"}
		cfg.Merge(&storage.Config{ContainerName: "b"})
		if cfg.ContainerName != "b" || cfg.ConnectionString != "c1" {
			t.Errorf("merge result = %+v", cfg)
		}
	})
}

func TestStartRegistersReadiness(t *testing.T) {
	sys := newSystem(t)
	lc := lifecycle.New()

	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ready, ok := lc.Status()["storage"]
	if !ok {
		t.Fatal("storage check not registered")
	}
	if ready {
		t.Error("storage ready before the container was created")
	}
}
