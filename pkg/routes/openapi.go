package routes

import (
	"net/http"
	"strings"

	"github.com/cynaps/labelstate/pkg/openapi"
)

// Document adds an operation to spec for every route in the given groups.
// Operations inherit the nearest group tags and receive path parameters
// derived from the route pattern when none are declared. Operations
// without an id get one built from the method and path.
func Document(spec *openapi.Spec, groups ...Group) {
	for _, group := range groups {
		documentGroup(spec, "", nil, group)
	}
}

func documentGroup(spec *openapi.Spec, parentPrefix string, parentTags []string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	tags := group.Tags
	if len(tags) == 0 {
		tags = parentTags
	}
	for _, tag := range group.Tags {
		spec.AddTag(tag, "")
	}

	for _, route := range group.Routes {
		path := specPath(fullPrefix + route.Pattern)

		item, ok := spec.Paths[path]
		if !ok {
			item = &openapi.PathItem{}
			spec.Paths[path] = item
		}

		op := operation(route, path)
		if len(op.Tags) == 0 {
			op.Tags = tags
		}
		if len(op.Parameters) == 0 {
			op.Parameters = pathParams(path)
		}
		if op.OperationID == "" {
			op.OperationID = operationID(route.Method, path)
		}

		switch route.Method {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodPatch:
			item.Patch = op
		case http.MethodDelete:
			item.Delete = op
		}
	}

	for _, child := range group.Children {
		documentGroup(spec, fullPrefix, tags, child)
	}
}

func operation(route Route, path string) *openapi.Operation {
	if route.OpenAPI != nil {
		op := *route.OpenAPI
		return &op
	}
	return &openapi.Operation{
		Summary: route.Method + " " + path,
		Responses: map[int]*openapi.Response{
			http.StatusOK: {Description: "Success"},
		},
	}
}

func specPath(pattern string) string {
	if pattern == "" {
		return "/"
	}
	return strings.ReplaceAll(pattern, "...}", "}")
}

func pathParams(path string) []*openapi.Parameter {
	var params []*openapi.Parameter
	for segment := range strings.SplitSeq(path, "/") {
		if !strings.HasPrefix(segment, "{") || !strings.HasSuffix(segment, "}") {
			continue
		}
		name := segment[1 : len(segment)-1]
		if name == "id" {
			params = append(params, openapi.PathParam(name, "Resource identifier"))
			continue
		}
		params = append(params, openapi.StringPathParam(name, ""))
	}
	return params
}

// operationID turns "GET /sessions/{id}/values/{control}" into
// "getSessionsByIdValuesByControl".
func operationID(method, path string) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(method))
	for segment := range strings.SplitSeq(path, "/") {
		if segment == "" {
			continue
		}
		if name, ok := strings.CutPrefix(segment, "{"); ok {
			sb.WriteString("By")
			segment = strings.TrimSuffix(name, "}")
		}
		for part := range strings.SplitSeq(segment, "-") {
			if part == "" {
				continue
			}
			sb.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return sb.String()
}
