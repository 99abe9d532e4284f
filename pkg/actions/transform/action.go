// Package transform provides an action that reshapes run data with template
// expressions.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/template"
)

type Action struct {
	Input      string
	Expression string
}

func NewAction(config map[string]any) (*Action, error) {
	input, _ := config["input"].(string)

	expression, _ := config["expression"].(string)
	if expression == "" {
		return nil, errors.New("transform action requires an expression")
	}

	_, err := template.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid transform expression: %w", err)
	}

	if strings.Contains(input, "{{") {
		_, err := template.Parse(input)
		if err != nil {
			return nil, fmt.Errorf("invalid input expression: %w", err)
		}
	}

	return &Action{
		Input:      input,
		Expression: expression,
	}, nil
}

// Execute evaluates the expression against the extracted input data and
// returns the transformed value. Rendered JSON objects and arrays come back
// decoded, so expressions can build structured results.
func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "transform")
	logger.DebugContext(ctx, "Executing transform action")

	data, err := a.extract(executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get input data: %w", err)
	}

	result, err := template.Render(a.Expression, data)
	if err != nil {
		return nil, fmt.Errorf("transformation failed: %w", err)
	}

	return result, nil
}

// extract resolves the data the expression runs against: the results of all
// completed actions by default, the value a dotted path selects from the run
// context, or the rendered output of a template input. Paths keep structured
// values intact where template output is always flattened to text first.
func (a *Action) extract(executionCtx *models.ExecutionContext) (any, error) {
	if a.Input == "" {
		return executionCtx.ActionResults, nil
	}

	if strings.Contains(a.Input, "{{") {
		return template.RenderWithContext(a.Input, executionCtx)
	}

	return template.LookupPath(executionCtx.AsMap(), a.Input)
}
