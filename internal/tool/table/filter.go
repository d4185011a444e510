package table

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
)

// Comparison operators accepted by filter_csv_data.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpContains     = "contains"
)

// Operators lists every supported operator.
var Operators = []string{OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpContains}

// Condition is one predicate on a column.
type Condition struct {
	Column   string `json:"column" validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value"`
}

type filterArgs struct {
	FilePath   string      `json:"file_path" validate:"required"`
	Conditions []Condition `json:"conditions,omitempty" validate:"dive"`

	// Single-condition form.
	Column   string `json:"column,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`
}

func filterHandler(ctx context.Context, args map[string]any) (tool.Result, error) {
	var a filterArgs
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

	conds := a.Conditions
	switch {
	case len(conds) > 0:
		for _, c := range conds {
			if !fr.Has(c.Column) {
				return tool.Failuref("column '%s' does not exist in file", c.Column), nil
			}
		}
	case a.Column != "":
		if !fr.Has(a.Column) {
			return tool.Failuref("column '%s' does not exist in file", a.Column), nil
		}
		conds = []Condition{{Column: a.Column, Operator: a.Operator, Value: a.Value}}
	default:
		return tool.Failure("must provide conditions or column/operator/value"), nil
	}

	rows, err := Filter(fr, conds)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Success(map[string]any{
		"original_rows": fr.Len(),
		"filtered_rows": len(rows),
		"filtered_data": fr.Records(rows),
	}), nil
}

// Filter returns the positions of the rows of fr matching every condition.
// Conditions are applied in order; the first invalid one aborts.
func Filter(fr *Frame, conds []Condition) ([]int, error) {
	rows := fr.All()
	for _, c := range conds {
		col := fr.Index(c.Column)
		if col < 0 {
			return nil, fmt.Errorf("column '%s' does not exist in file", c.Column)
		}
		pred, err := predicate(c)
		if err != nil {
			return nil, err
		}
		kept := make([]int, 0, len(rows))
		for _, i := range rows {
			ok, err := pred(fr.Rows[i][col])
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, i)
			}
		}
		rows = kept
	}
	return rows, nil
}

// predicate compiles c into a test on a raw cell. Missing cells never match,
// except under != where they always do.
func predicate(c Condition) (func(cell string) (bool, error), error) {
	switch c.Operator {
	case OpEqual:
		return func(cell string) (bool, error) { return equal(cell, c.Value), nil }, nil
	case OpNotEqual:
		return func(cell string) (bool, error) { return !equal(cell, c.Value), nil }, nil
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		operand, ok := toFloat(c.Value)
		if !ok {
			return nil, fmt.Errorf("cannot convert value '%s' to float for operator '%s'", formatValue(c.Value), c.Operator)
		}
		cmp := ordered(c.Operator)
		return func(cell string) (bool, error) {
			if cell == "" {
				return false, nil
			}
			v, ok := parseNumber(cell)
			if !ok {
				return false, fmt.Errorf("column '%s' has non-numeric value '%s' for operator '%s'", c.Column, cell, c.Operator)
			}
			return cmp(v, operand), nil
		}, nil
	case OpContains:
		needle := strings.ToLower(formatValue(c.Value))
		return func(cell string) (bool, error) {
			return cell != "" && strings.Contains(strings.ToLower(cell), needle), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported operator: %s", c.Operator)
	}
}

func ordered(op string) func(a, b float64) bool {
	switch op {
	case OpGreater:
		return func(a, b float64) bool { return a > b }
	case OpLess:
		return func(a, b float64) bool { return a < b }
	case OpGreaterEqual:
		return func(a, b float64) bool { return a >= b }
	default:
		return func(a, b float64) bool { return a <= b }
	}
}

// equal compares numerically when both sides are numbers and textually
// otherwise. A boolean operand matches boolean cell spellings.
func equal(cell string, v any) bool {
	if cell == "" || v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		cb, ok := parseBool(cell)
		return ok && cb == b
	}
	if operand, ok := toFloat(v); ok {
		if cv, ok := parseNumber(cell); ok {
			return cv == operand
		}
	}
	return cell == formatValue(v)
}

// toFloat converts a JSON operand to float64. Strings must parse as numbers.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return parseNumber(x)
	default:
		return 0, false
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}
