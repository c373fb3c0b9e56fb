package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cynaps/labelstate/internal/api"
	"github.com/cynaps/labelstate/internal/config"
	"github.com/cynaps/labelstate/internal/infrastructure"
	"github.com/cynaps/labelstate/pkg/database"
	"github.com/cynaps/labelstate/pkg/drafts"
	"github.com/cynaps/labelstate/pkg/middleware"
	"github.com/cynaps/labelstate/pkg/openapi"
	"github.com/cynaps/labelstate/pkg/pagination"
	"github.com/cynaps/labelstate/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "1m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "labelstate",
			User:            "labelstate",
			Password:        "labelstate",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "exports",
			ConnectionString: azuriteConnString,
			MaxListSize:      50,
		},
		Drafts: drafts.Config{
			InMemory:       true,
			TTL:            "1h",
			GCInterval:     "5m",
			GCDiscardRatio: 0.5,
		},
		Sessions: config.SessionsConfig{
			MaxOpen:      16,
			HistoryLimit: 10,
			IdleTimeout:  "10m",
		},
		API: config.APIConfig{
			BasePath:      "/api",
			MaxUploadSize: "1MB",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
			OpenAPI: openapi.Config{
				Title:       "Labelstate API",
				Description: "test",
			},
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	t.Cleanup(func() {
		infra.Lifecycle.Shutdown(5 * time.Second)
		infra.Close()
	})
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestModuleServesOpenAPI(t *testing.T) {
	m, err := api.NewModule(validConfig(), setupInfra(t))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest("GET", "/api/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var spec openapi.Spec
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode spec: %v", err)
	}

	for _, path := range []string{
		"/projects",
		"/annotations/{id}/copy",
		"/sessions/{id}/values/{control}",
		"/exports/download/{key}",
	} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("spec missing path %s", path)
		}
	}

	save := spec.Paths["/sessions/{id}/save"]
	if save == nil || save.Post == nil {
		t.Fatal("spec missing POST /sessions/{id}/save")
	}
	if _, ok := save.Post.Responses[http.StatusUnprocessableEntity]; !ok {
		t.Error("save operation should document 422")
	}
	if _, ok := spec.Components.Schemas["SessionState"]; !ok {
		t.Error("components missing SessionState schema")
	}
}

func TestModuleRoutes(t *testing.T) {
	m, err := api.NewModule(validConfig(), setupInfra(t))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list sessions", "GET", "/api/sessions", http.StatusOK},
		{"unknown session", "GET", "/api/sessions/5f0c6a34-8e68-4a8e-bb0b-7d4f0e3c1a10", http.StatusNotFound},
		{"malformed session id", "GET", "/api/sessions/not-a-uuid", http.StatusBadRequest},
		{"invalid export page size", "GET", "/api/exports?max_results=abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Sessions.MaxOpen != 16 {
		t.Errorf("sessions max open: got %d, want 16", runtime.Sessions.MaxOpen)
	}
	if runtime.Sessions.IdleTimeout != 10*time.Minute {
		t.Errorf("sessions idle timeout: got %v, want 10m", runtime.Sessions.IdleTimeout)
	}
	if runtime.Sessions.MaxBodySize != cfg.API.MaxUploadSizeBytes() {
		t.Errorf("sessions max body: got %d, want %d", runtime.Sessions.MaxBodySize, cfg.API.MaxUploadSizeBytes())
	}
	if runtime.Drafts == nil {
		t.Error("runtime drafts is nil")
	}
	if runtime.Logger == nil || runtime.Logger == infra.Logger {
		t.Error("runtime logger should be a module-scoped copy")
	}
	if runtime.Infrastructure == infra {
		t.Error("runtime shares the infrastructure struct")
	}
	if runtime.MaxUploadSize != cfg.API.MaxUploadSizeBytes() {
		t.Errorf("max upload size: got %d, want %d", runtime.MaxUploadSize, cfg.API.MaxUploadSizeBytes())
	}
	if runtime.BasePath != "/api" {
		t.Errorf("base path: got %q, want /api", runtime.BasePath)
	}
}

func TestNewDomain(t *testing.T) {
	runtime := api.NewRuntime(validConfig(), setupInfra(t))

	domain := api.NewDomain(runtime)
	if domain.Projects == nil || domain.Annotations == nil || domain.Sessions == nil {
		t.Fatal("NewDomain() left a system nil")
	}
}
