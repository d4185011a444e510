// Package finish provides the "task_done" tool the model calls to end a run.
package finish

import (
	"context"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// ToolName is the wire name of the finish tool.
const ToolName = "task_done"

type doneArgs struct {
	Message string `json:"message"`
}

// NewTools returns the finish tool.
func NewTools() tool.Set {
	return tool.Set{{
		Definition: llm.ToolDefinition{
			Name:        ToolName,
			Description: "Mark the task as finished and end the workflow. Call this once all questions have been written.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "Summary of what was done.",
					},
				},
				"required": []string{"message"},
			},
		},
		Handler: func(_ context.Context, args map[string]any) (tool.Result, error) {
			var a doneArgs
			if err := tool.Bind(args, &a); err != nil {
				return tool.Result{}, err
			}
			return tool.Completed(a.Message), nil
		},
	}}
}
