package api

import (
	"fmt"
	"net/http"

	"github.com/cynaps/labelstate/pkg/openapi"
	"github.com/cynaps/labelstate/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) error {
	exports := newExportsHandler(
		runtime.Storage,
		runtime.Logger,
		runtime.MaxListSize,
	)

	groups := []routes.Group{
		domain.Projects.Handler().Routes(),
		domain.Annotations.Handler(runtime.MaxUploadSize).Routes(),
		domain.Sessions.Handler().Routes(),
		exports.routes(),
	}

	if err := routes.Register(mux, groups...); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	spec := openapi.NewSpec(runtime.Docs.Title, runtime.Version)
	spec.AddServer(runtime.BasePath)
	runtime.Docs.Apply(spec)
	spec.Components.AddSchemas(schemas())
	routes.Document(spec, groups...)

	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return fmt.Errorf("marshal openapi spec: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	return nil
}
