package api

import "github.com/cynaps/labelstate/pkg/openapi"

func schemas() map[string]*openapi.Schema {
	uuidSchema := &openapi.Schema{Type: "string", Format: "uuid"}
	timestamp := &openapi.Schema{Type: "string", Format: "date-time"}
	record := &openapi.Schema{
		Type:        "object",
		Description: "Serialized result record. Unknown fields are preserved.",
		Properties: map[string]*openapi.Schema{
			"id":         {Type: "string"},
			"from_name":  {Type: "string"},
			"to_name":    {Type: "string"},
			"type":       {Type: "string"},
			"item_index": {Type: "integer"},
			"origin":     {Type: "string", Enum: []any{"manual", "prediction", "prediction-changed"}},
			"value":      {Type: "object"},
		},
	}
	control := &openapi.Schema{
		Type:     "object",
		Required: []string{"name", "type", "binding_mode"},
		Properties: map[string]*openapi.Schema{
			"name":             {Type: "string"},
			"type":             {Type: "string", Enum: []any{"choices", "number", "rating", "taxonomy"}},
			"binding_mode":     {Type: "string", Enum: []any{"perTag", "perItem", "perRegion"}},
			"required":         {Type: "boolean"},
			"required_message": {Type: "string"},
			"to_name":          {Type: "string"},
		},
	}
	warning := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"control": {Type: "string"},
			"message": {Type: "string"},
		},
	}

	return map[string]*openapi.Schema{
		"ResultRecord": record,
		"Control":      control,
		"Warning":      warning,
		"Project": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         uuidSchema,
				"title":      {Type: "string"},
				"controls":   {Type: "array", Items: openapi.SchemaRef("Control")},
				"created_at": timestamp,
				"updated_at": timestamp,
			},
		},
		"CreateProjectCommand": {
			Type:     "object",
			Required: []string{"title", "controls"},
			Properties: map[string]*openapi.Schema{
				"title":    {Type: "string"},
				"controls": {Type: "array", Items: openapi.SchemaRef("Control")},
			},
		},
		"Annotation": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            uuidSchema,
				"project_id":    uuidSchema,
				"project_title": {Type: "string"},
				"task_id":       {Type: "integer"},
				"kind":          {Type: "string", Enum: []any{"annotation", "prediction"}},
				"parent_id":     uuidSchema,
				"item_count":    {Type: "integer"},
				"result":        {Type: "array", Items: openapi.SchemaRef("ResultRecord")},
				"model_version": {Type: "string"},
				"completed_by":  {Type: "string"},
				"created_at":    timestamp,
				"updated_at":    timestamp,
			},
		},
		"CreateAnnotationCommand": {
			Type:     "object",
			Required: []string{"project_id", "item_count"},
			Properties: map[string]*openapi.Schema{
				"project_id":    uuidSchema,
				"task_id":       {Type: "integer"},
				"kind":          {Type: "string", Enum: []any{"annotation", "prediction"}},
				"item_count":    {Type: "integer", Example: 1},
				"result":        {Type: "array", Items: openapi.SchemaRef("ResultRecord")},
				"model_version": {Type: "string"},
				"completed_by":  {Type: "string"},
			},
		},
		"OpenSessionRequest": {
			Type:     "object",
			Required: []string{"annotation_id"},
			Properties: map[string]*openapi.Schema{
				"annotation_id": uuidSchema,
			},
		},
		"SessionState": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            uuidSchema,
				"annotation_id": uuidSchema,
				"project_id":    uuidSchema,
				"item_count":    {Type: "integer"},
				"navigation": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"item":   {Type: "integer"},
						"region": {Type: "string"},
					},
				},
				"controls":  {Type: "array", Items: &openapi.Schema{Type: "object"}},
				"entries":   {Type: "integer"},
				"dirty":     {Type: "boolean"},
				"can_undo":  {Type: "boolean"},
				"restored":  {Type: "boolean"},
				"opened_at": timestamp,
			},
		},
		"SessionSummary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            uuidSchema,
				"annotation_id": uuidSchema,
				"project_id":    uuidSchema,
				"dirty":         {Type: "boolean"},
				"opened_at":     timestamp,
				"last_used":     timestamp,
			},
		},
		"SaveCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"submit":       {Type: "boolean", Default: false},
				"completed_by": {Type: "string"},
			},
		},
		"SaveResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"saved":      {Type: "boolean"},
				"warnings":   {Type: "array", Items: openapi.SchemaRef("Warning")},
				"annotation": openapi.SchemaRef("Annotation"),
			},
		},
	}
}
