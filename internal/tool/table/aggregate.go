package table

import (
	"context"
	"fmt"
	"math"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
)

// Aggregations accepted by calculate_csv_data.
const (
	AggSum   = "sum"
	AggAvg   = "avg"
	AggCount = "count"
	AggMin   = "min"
	AggMax   = "max"
)

// Aggregations lists every supported aggregation.
var Aggregations = []string{AggSum, AggAvg, AggCount, AggMin, AggMax}

type aggregateArgs struct {
	FilePath     string `json:"file_path" validate:"required"`
	Column       string `json:"column" validate:"required"`
	Operation    string `json:"operation" validate:"required"`
	FilterColumn string `json:"filter_column,omitempty"`
	FilterValue  any    `json:"filter_value,omitempty"`
}

func aggregateHandler(ctx context.Context, args map[string]any) (tool.Result, error) {
	var a aggregateArgs
	if err := tool.Bind(args, &a); err != nil {
		return tool.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return tool.Result{}, err
	}

	fr, err := Load(a.FilePath)
	if err != nil {
		return tool.Result{}, err
	}
	if !fr.Has(a.Column) {
		return tool.Failuref("column '%s' does not exist in file", a.Column), nil
	}

	rows := fr.All()
	if a.FilterColumn != "" && truthy(a.FilterValue) {
		if !fr.Has(a.FilterColumn) {
			return tool.Failuref("filter column '%s' does not exist in file", a.FilterColumn), nil
		}
		if rows, err = Filter(fr, []Condition{{Column: a.FilterColumn, Operator: OpEqual, Value: a.FilterValue}}); err != nil {
			return tool.Result{}, err
		}
	}

	result, err := Aggregate(fr, rows, a.Column, a.Operation)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Success(map[string]any{
		"operation":     a.Operation,
		"column":        a.Column,
		"result":        result,
		"filtered_rows": len(rows),
	}), nil
}

// Aggregate applies op to column over the given rows. count is the number of
// rows whatever their content; the other operations ignore cells that are not
// numbers and fail when none is left.
func Aggregate(fr *Frame, rows []int, column, op string) (any, error) {
	col := fr.Index(column)
	if col < 0 {
		return nil, fmt.Errorf("column '%s' does not exist in file", column)
	}

	switch op {
	case AggCount:
		return len(rows), nil
	case AggSum, AggAvg, AggMin, AggMax:
	default:
		return nil, fmt.Errorf("unsupported operation: %s", op)
	}

	nums := make([]float64, 0, len(rows))
	for _, i := range rows {
		if v, ok := parseNumber(fr.Rows[i][col]); ok && !math.IsNaN(v) {
			nums = append(nums, v)
		}
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("column '%s' contains no valid numeric data", column)
	}

	var result float64
	switch op {
	case AggSum:
		result = sum(nums)
	case AggAvg:
		result = sum(nums) / float64(len(nums))
	case AggMin:
		result = nums[0]
		for _, v := range nums[1:] {
			result = math.Min(result, v)
		}
	default:
		result = nums[0]
		for _, v := range nums[1:] {
			result = math.Max(result, v)
		}
	}
	// Infinite cells or overflow cannot be reported as a JSON number.
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return nil, fmt.Errorf("column '%s' %s result is not a finite number", column, op)
	}
	return result, nil
}

func sum(nums []float64) float64 {
	var s float64
	for _, v := range nums {
		s += v
	}
	return s
}

// truthy reports whether v would count as set: nil, "", 0 and false do not.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return true
	}
}
