// Package table provides the CSV tools the agent works with:
//
//   - "read_csv_info" reports the shape, column types and a sample of a file.
//   - "filter_csv_data" returns rows matching one or more column conditions.
//   - "calculate_csv_data" aggregates a column (sum, avg, count, min, max).
//   - "write_to_csv" appends a query/answer pair to an output file.
//
// Files are read whole on every call and never cached, so results always
// reflect the file on disk. Concurrent writers to one file are not
// coordinated.
package table

import (
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// Tool wire names.
const (
	InspectToolName   = "read_csv_info"
	FilterToolName    = "filter_csv_data"
	AggregateToolName = "calculate_csv_data"
	WriteToolName     = "write_to_csv"
)

var filePathParam = map[string]any{
	"type":        "string",
	"description": "Path of the CSV file.",
}

var scalarValue = []string{"string", "number", "boolean"}

// NewTools returns the CSV tool set.
func NewTools() tool.Set {
	return tool.Set{
		{
			Definition: llm.ToolDefinition{
				Name:        InspectToolName,
				Description: "Read basic information about a CSV file: row and column counts, column names, column data types and the first 3 records.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path": filePathParam,
					},
					"required": []string{"file_path"},
				},
			},
			Handler: inspectHandler,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        FilterToolName,
				Description: "Filter CSV rows by one or more conditions combined with AND. Pass either a conditions list or a single column/operator/value.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path": filePathParam,
						"conditions": map[string]any{
							"type":        "array",
							"description": "Conditions that must all hold.",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"column":   map[string]any{"type": "string", "description": "Column to test."},
									"operator": map[string]any{"type": "string", "enum": Operators, "description": "Comparison operator."},
									"value":    map[string]any{"type": scalarValue, "description": "Value to compare against."},
								},
								"required": []string{"column", "operator", "value"},
							},
						},
						"column":   map[string]any{"type": "string", "description": "Column to test (single-condition form)."},
						"operator": map[string]any{"type": "string", "enum": Operators, "description": "Comparison operator (single-condition form)."},
						"value":    map[string]any{"type": scalarValue, "description": "Value to compare against (single-condition form)."},
					},
					"required": []string{"file_path"},
					"anyOf": []any{
						map[string]any{"required": []string{"conditions"}},
						map[string]any{"required": []string{"column", "operator", "value"}},
					},
				},
			},
			Handler: filterHandler,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        AggregateToolName,
				Description: "Compute sum, avg, count, min or max over a CSV column, optionally restricted to rows where filter_column equals filter_value.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path":     filePathParam,
						"column":        map[string]any{"type": "string", "description": "Column to aggregate."},
						"operation":     map[string]any{"type": "string", "enum": Aggregations, "description": "Aggregation to apply."},
						"filter_column": map[string]any{"type": "string", "description": "Optional column to filter on."},
						"filter_value":  map[string]any{"type": scalarValue, "description": "Optional value filter_column must equal."},
					},
					"required": []string{"file_path", "column", "operation"},
				},
			},
			Handler: aggregateHandler,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        WriteToolName,
				Description: "Append a question and its answer to the query and answer columns of a CSV file, creating the file if needed.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path": map[string]any{"type": "string", "description": "Target CSV file."},
						"query":     map[string]any{"type": "string", "description": "Question text."},
						"answer":    map[string]any{"type": "string", "description": "Answer text."},
					},
					"required": []string{"file_path", "query", "answer"},
				},
			},
			Handler: writeHandler,
		},
	}
}
