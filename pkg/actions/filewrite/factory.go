package filewrite

import (
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func NewFileWriteActionFactory() protocol.ActionFactory {
	return &FileWriteActionFactory{}
}

type FileWriteActionFactory struct{}

func (f *FileWriteActionFactory) ID() string {
	return "file_write"
}

func (f *FileWriteActionFactory) Name() string {
	return "File Write"
}

func (f *FileWriteActionFactory) Description() string {
	return "Saves run data to a file, as indented JSON for structured data or raw text for strings"
}

func (f *FileWriteActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_name": map[string]any{
				"type":        "string",
				"description": "Name of the file to write. Supports templating.",
				"examples": []string{
					"report.json",
					"export-{{.execution.id}}.json",
				},
			},
			"directory": map[string]any{
				"type":        "string",
				"description": "Directory the file is written into, created if missing. Defaults to the system temp directory.",
			},
			"overwrite": map[string]any{
				"type":        "boolean",
				"description": "Whether an existing file may be replaced",
				"default":     false,
			},
			"input": map[string]any{
				"type":        "string",
				"description": "Data to write. A dotted path selects structured data from the run context; a template expression is rendered instead. Empty writes all action results.",
				"examples": []string{
					"",
					"action_results.fetch.body",
					"trigger_data.body",
				},
			},
		},
		"required": []string{"file_name"},
	}
}

func (f *FileWriteActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config)
}
