package fileread

import (
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func NewFileReadActionFactory() protocol.ActionFactory {
	return &FileReadActionFactory{}
}

type FileReadActionFactory struct{}

func (f *FileReadActionFactory) ID() string {
	return "file_read"
}

func (f *FileReadActionFactory) Name() string {
	return "File Read"
}

func (f *FileReadActionFactory) Description() string {
	return "Loads a file into the run context, parsing JSON content into structured data"
}

func (f *FileReadActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to read. Supports templating.",
				"examples": []string{
					"/var/exports/report.json",
					"/var/incoming/{{.trigger_data.name}}",
				},
			},
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"auto", "json", "text"},
				"description": "How to parse the content: json requires valid JSON, text returns the raw string, auto tries JSON and falls back to text",
				"default":     "auto",
			},
		},
		"required": []string{"path"},
	}
}

func (f *FileReadActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config)
}
