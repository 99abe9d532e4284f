package transform

import (
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func NewTransformActionFactory() protocol.ActionFactory {
	return &TransformActionFactory{}
}

type TransformActionFactory struct{}

func (f *TransformActionFactory) ID() string {
	return "transform"
}

func (f *TransformActionFactory) Name() string {
	return "Transform"
}

func (f *TransformActionFactory) Description() string {
	return "Transforms run data using a template expression. The input can be a literal value or an expression that selects data from the run context."
}

func (f *TransformActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "Input data source. A dotted path selects structured data from the run context; a template expression is rendered instead. Empty runs the expression against all action results.",
				"examples": []string{
					"",
					"action_results.fetch_users",
					"action_results.api_call.body.data",
					"trigger_data.body",
				},
			},
			"expression": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Template expression applied to the input data. Rendered JSON objects and arrays are decoded into structured values.",
				"examples": []string{
					"{{.name}}",
					"{{index .users 0 \"email\"}}",
					`{ "full_name": "{{.first_name}} {{.last_name}}", "active": {{eq .status "active"}} }`,
					"{{len .items}}",
				},
			},
		},
		"required": []string{"expression"},
	}
}

func (f *TransformActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config)
}
