package httprequest

import (
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func NewHTTPRequestActionFactory() protocol.ActionFactory {
	return &HTTPRequestActionFactory{}
}

type HTTPRequestActionFactory struct{}

func (f *HTTPRequestActionFactory) ID() string {
	return "http_request"
}

func (f *HTTPRequestActionFactory) Name() string {
	return "HTTP Request"
}

func (f *HTTPRequestActionFactory) Description() string {
	return "Performs an HTTP request to a specified URL with optional headers, body and retries"
}

func (f *HTTPRequestActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"title":       "URL",
				"type":        "string",
				"description": "The URL to send the HTTP request to. Supports templating with run data.",
				"examples": []string{
					"https://api.example.com/users",
					"https://api.example.com/users/{{.action_results.create_user.body.id}}",
					"{{.variables.base_url}}/callback",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method to use",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers to include in the request. Values support templating.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
				"examples": []map[string]string{
					{
						"Content-Type":  "application/json",
						"Authorization": "Bearer {{.action_results.auth.body.token}}",
					},
				},
			},
			"body": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Request body content. Supports templating for dynamic JSON or text content.",
				"examples": []string{
					`{"name": "John Doe", "email": "john@example.com"}`,
					`{"order_id": "{{.trigger_data.body.order_id}}", "status": "active"}`,
				},
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
			},
			"retry": map[string]any{
				"type":        "object",
				"description": "Retry configuration for failed requests",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":        "integer",
						"description": "Total number of attempts, including the first request",
						"default":     1,
						"minimum":     1,
						"maximum":     5,
					},
					"delay": map[string]any{
						"type":        "integer",
						"description": "Delay between attempts in milliseconds",
						"default":     0,
						"minimum":     0,
						"maximum":     30000,
					},
				},
				"examples": []map[string]any{
					{"attempts": 3, "delay": 1000},
				},
			},
		},
		"required": []string{"url"},
	}
}

func (f *HTTPRequestActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config)
}
