// Package template renders dynamic expressions embedded in action and
// trigger configuration against the data of a run.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

// RenderWithContext renders input against the full run context: results
// of completed actions, workflow variables, trigger data, run metadata
// and the process environment.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"action_results": executionCtx.ActionResults,
		"variables":      executionCtx.Variables,
		"vars":           executionCtx.Variables, // short alias, both spellings are in use
		"trigger_data":   executionCtx.TriggerData,
		"metadata":       executionCtx.Metadata,
		"env":            getEnvVars(),
		"execution": map[string]any{
			"id":          executionCtx.ID,
			"workflow_id": executionCtx.WorkflowID,
		},
	}

	return Render(input, data)
}

// Render executes a template against arbitrary data. The rendered text
// is coerced: JSON objects and arrays are decoded, then numbers, then
// booleans; anything else comes back as a string.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// LookupPath walks a dotted path through nested maps and returns the value
// it ends at. Unlike Render it keeps structured values intact, so actions
// use it to select objects and arrays out of the run context.
func LookupPath(data map[string]any, path string) (any, error) {
	var current any = data

	for _, segment := range strings.Split(path, ".") {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q does not resolve to a value", path)
		}

		current, ok = currentMap[segment]
		if !ok {
			return nil, fmt.Errorf("path %q does not resolve to a value", path)
		}
	}

	return current, nil
}

// Parse validates a template string without executing it. Configuration
// validators call this at load time so a broken expression fails the
// workflow before any run starts.
func Parse(templateStr string) (*template.Template, error) {
	return template.
		New("config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}

				num := make([]byte, 1)

				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
}

// getEnvVars returns environment variables as a map.
func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
